package pggate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pggate/postgres-gateway/internal/errprompt"
	"github.com/pggate/postgres-gateway/internal/hooks"
	"github.com/pggate/postgres-gateway/internal/sanitize"
	"github.com/pggate/postgres-gateway/internal/timeout"
)

// Gateway composes the connection pool, schema catalog, and read-only query
// executor behind the four MCP-facing handlers. All exported methods are
// safe for concurrent use.
type Gateway struct {
	config      Config
	conn        ConnConfig
	pool        *pgxpool.Pool
	semaphore   chan struct{}
	timeouts    *timeout.Manager
	sanitizer   *sanitize.Sanitizer
	errPrompts  *errprompt.Matcher
	beforeHooks *hooks.Runner
	logger      zerolog.Logger
	closed      atomic.Bool
}

// New creates a Gateway. It validates the configuration (panicking on
// invalid values), performs a one-shot throwaway connection to verify
// credentials and reachability, and only then builds the pool. A failed
// probe is fatal and returns a *ConnectionError.
func New(ctx context.Context, conn ConnConfig, config Config, logger zerolog.Logger) (*Gateway, error) {
	// --- Config validation (panics on invalid config) ---

	if config.Pool.MaxConns <= 0 {
		panic("pggate: pool.max_conns must be > 0")
	}
	if config.Pool.MinConns <= 0 {
		panic("pggate: pool.min_conns must be > 0")
	}
	if config.Pool.MinConns > config.Pool.MaxConns {
		panic("pggate: pool.min_conns must not exceed pool.max_conns")
	}
	if config.Pool.AcquireTimeoutSeconds <= 0 {
		panic("pggate: pool.acquire_timeout_seconds must be > 0")
	}
	if config.Query.QueryTimeoutSeconds <= 0 {
		panic("pggate: query.query_timeout_seconds must be > 0")
	}
	if config.Query.ListTimeoutSeconds <= 0 {
		panic("pggate: query.list_timeout_seconds must be > 0")
	}
	if config.Query.DescribeTimeoutSeconds <= 0 {
		panic("pggate: query.describe_timeout_seconds must be > 0")
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.MaxResultLength < 0 {
		panic("pggate: query.max_result_length must be > 0")
	}

	var maxConnLifetime, maxConnIdleTime time.Duration
	if config.Pool.MaxConnLifetime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnLifetime)
		if err != nil {
			panic(fmt.Sprintf("pggate: invalid pool.max_conn_lifetime %q: %v", config.Pool.MaxConnLifetime, err))
		}
		maxConnLifetime = d
	}
	if config.Pool.MaxConnIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnIdleTime)
		if err != nil {
			panic(fmt.Sprintf("pggate: invalid pool.max_conn_idle_time %q: %v", config.Pool.MaxConnIdleTime, err))
		}
		maxConnIdleTime = d
	}

	// --- Internal components (panic on invalid regex rules) ---

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		if r.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("pggate: timeout_rule with pattern %q has timeout_seconds <= 0", r.Pattern))
		}
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	timeouts, err := timeout.NewManager(time.Duration(config.Query.QueryTimeoutSeconds)*time.Second, timeoutRules)
	if err != nil {
		panic(fmt.Sprintf("pggate: %v", err))
	}

	sanitizeRules := make([]sanitize.Rule, len(config.Sanitization))
	for i, r := range config.Sanitization {
		sanitizeRules[i] = sanitize.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	sanitizer, err := sanitize.New(sanitizeRules)
	if err != nil {
		panic(fmt.Sprintf("pggate: %v", err))
	}

	promptRules := make([]errprompt.Rule, len(config.ErrorPrompts))
	for i, r := range config.ErrorPrompts {
		promptRules[i] = errprompt.Rule{Pattern: r.Pattern, Message: r.Message}
	}
	errPrompts, err := errprompt.New(promptRules)
	if err != nil {
		panic(fmt.Sprintf("pggate: %v", err))
	}

	var beforeHooks *hooks.Runner
	if len(config.Hooks.BeforeQuery) > 0 {
		if config.Hooks.DefaultTimeoutSeconds <= 0 {
			panic("pggate: hooks.default_timeout_seconds must be > 0 when hooks are configured")
		}
		hookRules := make([]hooks.Rule, len(config.Hooks.BeforeQuery))
		for i, h := range config.Hooks.BeforeQuery {
			hookRules[i] = hooks.Rule{
				Pattern: h.Pattern,
				Command: h.Command,
				Args:    h.Args,
				Timeout: time.Duration(h.TimeoutSeconds) * time.Second,
			}
		}
		beforeHooks, err = hooks.NewRunner(time.Duration(config.Hooks.DefaultTimeoutSeconds)*time.Second, hookRules, logger)
		if err != nil {
			panic(fmt.Sprintf("pggate: %v", err))
		}
	}

	// --- One-shot connectivity probe, before the pool exists ---

	probe, err := pgx.Connect(ctx, conn.ConnString())
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if err := probe.Ping(ctx); err != nil {
		probe.Close(ctx)
		return nil, &ConnectionError{Err: err}
	}
	if err := probe.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to close probe connection")
	}

	// --- Pool ---

	poolConfig, err := pgxpool.ParseConfig(conn.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	if maxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = maxConnLifetime
	}
	if maxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = maxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	logger.Info().
		Str("host", conn.Host).
		Int("port", conn.Port).
		Str("database", conn.Database).
		Int("max_conns", config.Pool.MaxConns).
		Msg("connection pool created")

	return &Gateway{
		config:      config,
		conn:        conn,
		pool:        pool,
		semaphore:   make(chan struct{}, config.Pool.MaxConns),
		timeouts:    timeouts,
		sanitizer:   sanitizer,
		errPrompts:  errPrompts,
		beforeHooks: beforeHooks,
		logger:      logger,
	}, nil
}

// Ping verifies database connectivity using a pooled connection.
func (g *Gateway) Ping(ctx context.Context) error {
	if g.closed.Load() {
		return ErrClosed
	}
	return g.pool.Ping(ctx)
}

// Close drains the pool. In-flight operations are allowed to finish; any
// acquire after Close begins fails with ErrClosed. Accepts a context for
// API forward-compatibility; pgxpool's Close does not support one.
func (g *Gateway) Close(ctx context.Context) {
	if g.closed.Swap(true) {
		return
	}
	g.logger.Info().Msg("draining connection pool")
	g.pool.Close()
}

// withConn is the scoped-acquisition wrapper every handler goes through: it
// bounds the operation with opTimeout, acquires a pool slot and a
// connection, runs fn, and releases both on every exit path. Release cannot
// be skipped by a new error path in fn.
func (g *Gateway) withConn(ctx context.Context, opTimeout time.Duration, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	if g.closed.Load() {
		return ErrClosed
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	acquireCtx, acquireCancel := context.WithTimeout(ctx, time.Duration(g.config.Pool.AcquireTimeoutSeconds)*time.Second)
	defer acquireCancel()

	select {
	case g.semaphore <- struct{}{}:
	case <-acquireCtx.Done():
		return fmt.Errorf("%w: all %d connection slots in use: %v", ErrPoolExhausted, cap(g.semaphore), acquireCtx.Err())
	}
	defer func() { <-g.semaphore }()

	conn, err := g.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no connection available: %v", ErrPoolExhausted, err)
		}
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(opCtx, conn)
}
