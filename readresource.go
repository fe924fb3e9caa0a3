package pggate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Column lookups are parameter-bound on the table name; the regclass used
// for col_description is built from the catalog's own quote_ident output,
// not from caller input.
const tableColumnsSQL = `
SELECT
    c.column_name,
    c.data_type,
    c.is_nullable,
    col_description(
        (quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass,
        c.ordinal_position
    ) AS description
FROM information_schema.columns c
WHERE c.table_schema = 'public'
  AND c.table_name = $1
ORDER BY c.ordinal_position
`

const tableConstraintsSQL = `
SELECT
    con.conname,
    con.contype::text
FROM pg_constraint con
JOIN pg_class t ON con.conrelid = t.oid
WHERE t.relname = $1
`

// tableNameFromURI extracts the table name from a resource URI: the
// second-to-last path segment of postgres://<host>/<table>/schema.
func tableNameFromURI(uri string) (string, error) {
	parts := strings.Split(uri, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q has fewer than two path segments", ErrInvalidResourceURI, uri)
	}
	table := parts[len(parts)-2]
	if table == "" {
		return "", fmt.Errorf("%w: %q has an empty table segment", ErrInvalidResourceURI, uri)
	}
	return table, nil
}

// ReadResource resolves a resource URI to its table and returns the table's
// SchemaDocument serialized as a JSON string.
func (g *Gateway) ReadResource(ctx context.Context, uri string) (string, error) {
	table, err := tableNameFromURI(uri)
	if err != nil {
		return "", err
	}

	doc, err := g.DescribeTable(ctx, table)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize schema document: %w", err)
	}
	return string(payload), nil
}

// DescribeTable returns the columns (in physical ordinal order) and named
// constraints of a table. The catalog queries run inside a read-only
// transaction that is always rolled back.
func (g *Gateway) DescribeTable(ctx context.Context, table string) (*SchemaDocument, error) {
	startTime := time.Now()
	doc := &SchemaDocument{
		Columns:     []ColumnInfo{},
		Constraints: []ConstraintInfo{},
	}

	err := g.withConn(ctx, time.Duration(g.config.Query.DescribeTimeoutSeconds)*time.Second, func(qctx context.Context, conn *pgxpool.Conn) error {
		tx, err := conn.BeginTx(qctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
		if err != nil {
			return fmt.Errorf("failed to begin read-only transaction: %w", err)
		}
		defer tx.Rollback(ctx) // metadata only, never committed

		if err := fetchColumns(qctx, tx, table, doc); err != nil {
			return err
		}
		return fetchConstraints(qctx, tx, table, doc)
	})
	if err != nil {
		g.logger.Error().Err(err).Str("table", table).Msg("describe table failed")
		return nil, err
	}

	g.logger.Info().
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(doc.Columns)).
		Int("constraint_count", len(doc.Constraints)).
		Msg("table described")

	return doc, nil
}

func fetchColumns(ctx context.Context, tx pgx.Tx, table string, doc *SchemaDocument) error {
	rows, err := tx.Query(ctx, tableColumnsSQL, table)
	if err != nil {
		return fmt.Errorf("failed to fetch columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Description); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		doc.Columns = append(doc.Columns, col)
	}
	return rows.Err()
}

func fetchConstraints(ctx context.Context, tx pgx.Tx, table string, doc *SchemaDocument) error {
	rows, err := tx.Query(ctx, tableConstraintsSQL, table)
	if err != nil {
		return fmt.Errorf("failed to fetch constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var con ConstraintInfo
		if err := rows.Scan(&con.Name, &con.Kind); err != nil {
			return fmt.Errorf("failed to scan constraint: %w", err)
		}
		doc.Constraints = append(doc.Constraints, con)
	}
	return rows.Err()
}
