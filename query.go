package pggate

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// validateSQL is the first of the two read-only layers: a literal prefix
// heuristic. It blocks the common non-read statement keywords cheaply, but
// does not parse SQL — read-only statements not starting with SELECT (e.g.
// a WITH-prefixed CTE) are rejected too. The second layer, the read-only
// transaction with forced rollback in Execute, holds even where this check
// is wrong.
func validateSQL(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return fmt.Errorf("%w: query must start with SELECT", ErrNonSelectQuery)
	}
	return nil
}

// Execute runs a caller-supplied SELECT statement inside an explicit
// read-only transaction and rolls it back unconditionally — the transaction
// is never committed, so no write can reach storage even if the statement
// smuggles one past the prefix check. Validation failures are returned
// before any pool slot is taken.
func (g *Gateway) Execute(ctx context.Context, input QueryInput) (*QueryResult, error) {
	startTime := time.Now()
	sql := input.SQL

	if err := validateSQL(sql); err != nil {
		return nil, err
	}

	var hookNames []string
	if g.beforeHooks != nil {
		modified, executed, err := g.beforeHooks.Run(ctx, sql)
		if err != nil {
			return nil, err
		}
		sql, hookNames = modified, executed
	}

	opTimeout, timeoutRule := g.timeouts.ResolveWithPattern(sql)

	var result *QueryResult
	err := g.withConn(ctx, opTimeout, func(qctx context.Context, conn *pgxpool.Conn) error {
		tx, err := conn.BeginTx(qctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
		if err != nil {
			return fmt.Errorf("failed to begin read-only transaction: %w", err)
		}
		// Parent ctx, not qctx: if the query timed out, qctx is already
		// cancelled and the rollback itself would fail.
		defer tx.Rollback(ctx)

		rows, err := tx.Query(qctx, sql)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		result, err = collectRows(rows)
		return err
	})
	if err != nil {
		g.logger.Error().Err(err).Str("sql", truncateForLog(sql, 200)).Msg("query error")
		return nil, err
	}

	result.Rows = g.sanitizer.Apply(result.Rows)

	logEvent := g.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", result.RowCount)
	if len(hookNames) > 0 {
		logEvent = logEvent.Strs("before_hooks", hookNames)
	}
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	logEvent.Msg("query executed")

	return result, nil
}

// collectRows reads all rows and shapes them into a QueryResult. Column
// order follows the result set's field order; RowCount equals len(Rows) by
// construction.
func collectRows(rows pgx.Rows) (*QueryResult, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Columns: columns, Rows: resultRows, RowCount: len(resultRows)}, nil
}

// convertValue turns a pgx-returned value into a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case netip.Prefix:
		return val.String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea — base64 encode
		return base64.StdEncoding.EncodeToString(val)
	case string:
		return val
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertValue(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertValue(v)
		}
		return result
	default:
		return val
	}
}

func convertFloat(f float64) any {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

// truncateForLog shortens a string for log output without splitting a rune.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
