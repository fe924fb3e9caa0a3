package pggate_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	pggate "github.com/pggate/postgres-gateway"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func validConfig() pggate.Config {
	return pggate.DefaultConfig()
}

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		default:
			t.Fatalf("expected panic string/error containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

// expectNoPanic calls f and asserts that it does NOT panic.
func expectNoPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

// dockerAvailable checks whether the Docker daemon is reachable.
// testcontainers-go panics (rather than returning an error) when Docker
// is not installed, so we probe for it up-front.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// startPostgres spins up a PostgreSQL 16 container and returns its
// connection URL. If Docker is not available the test is skipped.
func startPostgres(t *testing.T) string {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return connStr
}

// execSQL runs setup statements over a direct connection. The gateway
// itself is read-only, so seeding has to bypass it.
func execSQL(t *testing.T, connStr string, statements ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect for setup: %v", err)
	}
	defer conn.Close(ctx)
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup statement failed: %v\n%s", err, stmt)
		}
	}
}

// scanOneInt runs a single-value query over a direct connection, for
// verifying state the gateway must not have changed.
func scanOneInt(t *testing.T, connStr, sql string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect for verification: %v", err)
	}
	defer conn.Close(ctx)
	var n int
	if err := conn.QueryRow(ctx, sql).Scan(&n); err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	return n
}

// writeLimitHook writes an executable before-query hook that rewrites any
// query to fetch a single row.
func writeLimitHook(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script hooks are not exercised on windows")
	}
	path := filepath.Join(t.TempDir(), "limit.sh")
	script := "#!/bin/sh\ncat >/dev/null\necho '{\"accept\":true,\"modified_query\":\"SELECT id FROM users ORDER BY id LIMIT 1\"}'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write hook script: %v", err)
	}
	return path
}

// newTestGateway builds a gateway against the containerized database.
func newTestGateway(t *testing.T, connStr, localHost string, config pggate.Config) *pggate.Gateway {
	t.Helper()
	ctx := context.Background()

	conn, err := pggate.ParseDatabaseURL(connStr, localHost)
	if err != nil {
		t.Fatalf("failed to parse connection URL: %v", err)
	}
	gw, err := pggate.New(ctx, conn, config, testLogger())
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	t.Cleanup(func() { gw.Close(ctx) })
	return gw
}
