// Package pggate is a read-only PostgreSQL query gateway for AI agents,
// exposed through the Model Context Protocol (MCP).
//
// It advertises every table in the public schema as a browsable resource
// (postgres://<host>/<table>/schema) and exposes a single "query" tool that
// executes arbitrary SELECT statements. Mutation safety is enforced twice:
// a cheap prefix check rejects anything that does not start with SELECT,
// and every accepted statement runs inside an explicit read-only transaction
// that is always rolled back, never committed. The prefix check is a
// heuristic with known false negatives (a read-only CTE starting with WITH
// is rejected); the forced-rollback transaction is the actual guarantee.
//
// # Library Usage
//
//	conn, err := pggate.ParseDatabaseURL("postgres://user:pass@db:5432/app", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	gw, err := pggate.New(ctx, conn, pggate.DefaultConfig(), logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gw.Close(ctx)
//
//	text, err := gw.CallTool(ctx, "query", map[string]any{"sql": "SELECT * FROM users LIMIT 10"})
//
//	// Or register on an MCP server:
//	pggate.RegisterMCPHandlers(mcpServer, gw)
//
// Query failures never propagate as transport faults: the "query" tool
// always answers with a text payload, and a failing statement produces a
// textual error message (optionally followed by configured guidance
// prompts) so a bad ad-hoc query cannot kill the agent session. Schema
// listing and resource reads, by contrast, surface failures as handler
// errors.
package pggate
