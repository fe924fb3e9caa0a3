package pggate

import (
	"context"
	"errors"
	"testing"
)

func TestTableNameFromURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{"standard URI", "postgres://localhost/users/schema", "users", false},
		{"overridden host", "postgres://db.example.com/order_items/schema", "order_items", false},
		{"no scheme", "localhost/users/schema", "users", false},
		{"single segment", "schema", "", true},
		{"empty string", "", "", true},
		{"empty table segment", "postgres://localhost//schema", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tableNameFromURI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidResourceURI) {
					t.Errorf("tableNameFromURI(%q) = %v, want ErrInvalidResourceURI", tt.uri, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("tableNameFromURI(%q) failed: %v", tt.uri, err)
			}
			if got != tt.want {
				t.Errorf("tableNameFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

// URI validation happens before any connection is touched.
func TestReadResourceRejectsInvalidURIWithoutPool(t *testing.T) {
	t.Parallel()
	g := &Gateway{}

	_, err := g.ReadResource(context.Background(), "schema")
	if !errors.Is(err, ErrInvalidResourceURI) {
		t.Errorf("ReadResource(schema) = %v, want ErrInvalidResourceURI", err)
	}
}
