package pggate

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Callers match with errors.Is; messages are wrapped with
// operation context at the point of failure.
var (
	// ErrEmptyQuery rejects empty or whitespace-only SQL. Detected before
	// any connection is acquired.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNonSelectQuery rejects SQL that does not start with SELECT
	// (case-insensitive, after trimming). Detected before any connection
	// is acquired. This is a heuristic: read-only statements that start
	// with another keyword (e.g. WITH) are also rejected.
	ErrNonSelectQuery = errors.New("only SELECT queries are allowed")

	// ErrUnknownTool rejects call-tool requests for any tool but "query".
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidResourceURI rejects resource URIs with fewer than two path
	// segments, from which no table name can be extracted.
	ErrInvalidResourceURI = errors.New("invalid resource URI")

	// ErrPoolExhausted is returned when no connection becomes available
	// within the configured acquire timeout. Retryable by the caller.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrClosed is returned for any operation after Close has begun.
	ErrClosed = errors.New("gateway is closed")
)

// ConnectionError is the fatal startup failure: the one-shot connectivity
// probe could not reach the database. It aborts gateway construction.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
