package pggate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Table comments are read with obj_description over a regclass built with
// quote_ident — the database's own identifier quoting, never string
// interpolation of caller input.
const listTablesSQL = `
SELECT
    t.table_name,
    obj_description(
        (quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass,
        'pg_class'
    ) AS description
FROM information_schema.tables t
WHERE t.table_schema = 'public'
`

// ListResources returns one ResourceDescriptor per table in the public
// schema. Tables without a comment get a nil description. Ordering is
// whatever the catalog query returns.
func (g *Gateway) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	startTime := time.Now()
	resources := []ResourceDescriptor{}

	err := g.withConn(ctx, time.Duration(g.config.Query.ListTimeoutSeconds)*time.Second, func(qctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(qctx, listTablesSQL)
		if err != nil {
			return fmt.Errorf("list resources query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			var description *string
			if err := rows.Scan(&name, &description); err != nil {
				return fmt.Errorf("list resources scan failed: %w", err)
			}
			resources = append(resources, ResourceDescriptor{
				URI:         fmt.Sprintf("postgres://%s/%s/schema", g.conn.DisplayHost(), name),
				Name:        name + " schema",
				Description: description,
				MIMEType:    "application/json",
			})
		}
		return rows.Err()
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("list resources failed")
		return nil, err
	}

	g.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(resources)).
		Msg("resources listed")

	return resources, nil
}
