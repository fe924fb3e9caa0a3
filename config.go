package pggate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ConnConfig holds the database connection parameters derived from a
// connection URL. Built once at startup and never mutated afterwards.
type ConnConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// LocalHost, when non-empty, replaces Host in advertised resource URIs.
	// It does not change the actual connection target.
	LocalHost string
}

// ParseDatabaseURL builds a ConnConfig from a postgres:// connection URL and
// an optional local-host override. Host defaults to localhost, port to 5432.
func ParseDatabaseURL(rawURL, localHost string) (ConnConfig, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ConnConfig{}, fmt.Errorf("invalid database URL: %w", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return ConnConfig{}, fmt.Errorf("invalid database URL: unsupported scheme %q", parsed.Scheme)
	}

	conn := ConnConfig{
		Host:      parsed.Hostname(),
		Port:      5432,
		Database:  strings.TrimPrefix(parsed.Path, "/"),
		LocalHost: localHost,
	}
	if conn.Host == "" {
		conn.Host = "localhost"
	}
	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return ConnConfig{}, fmt.Errorf("invalid database URL: bad port %q", portStr)
		}
		conn.Port = port
	}
	if parsed.User != nil {
		conn.User = parsed.User.Username()
		conn.Password, _ = parsed.User.Password()
	}
	return conn, nil
}

// DisplayHost returns the host advertised in resource URIs.
func (c ConnConfig) DisplayHost() string {
	if c.LocalHost != "" {
		return c.LocalHost
	}
	return c.Host
}

// ConnString renders the config as a key=value connection string for pgx.
func (c ConnConfig) ConnString() string {
	parts := []string{fmt.Sprintf("host=%s", c.Host), fmt.Sprintf("port=%d", c.Port)}
	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", c.Database))
	}
	if c.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", c.User))
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	return strings.Join(parts, " ")
}

// Config is the gateway configuration passed to New. Immutable after
// construction; New panics on invalid values.
type Config struct {
	Pool         PoolConfig         `json:"pool"`
	Query        QueryConfig        `json:"query"`
	ErrorPrompts []ErrorPromptRule  `json:"error_prompts"`
	Sanitization []SanitizationRule `json:"sanitization"`
	Hooks        HooksConfig        `json:"hooks"`
}

// ServerConfig embeds Config and adds fields only the CLI cares about.
type ServerConfig struct {
	Config
	Logging LoggingConfig `json:"logging"`
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MinConns              int    `json:"min_conns" env:"PGGATE_POOL_MIN_CONNS"`
	MaxConns              int    `json:"max_conns" env:"PGGATE_POOL_MAX_CONNS"`
	AcquireTimeoutSeconds int    `json:"acquire_timeout_seconds" env:"PGGATE_POOL_ACQUIRE_TIMEOUT_SECONDS"`
	MaxConnLifetime       string `json:"max_conn_lifetime" env:"PGGATE_POOL_MAX_CONN_LIFETIME"`
	MaxConnIdleTime       string `json:"max_conn_idle_time" env:"PGGATE_POOL_MAX_CONN_IDLE_TIME"`
}

// QueryConfig holds per-operation execution settings.
type QueryConfig struct {
	QueryTimeoutSeconds    int           `json:"query_timeout_seconds" env:"PGGATE_QUERY_TIMEOUT_SECONDS"`
	ListTimeoutSeconds     int           `json:"list_timeout_seconds" env:"PGGATE_LIST_TIMEOUT_SECONDS"`
	DescribeTimeoutSeconds int           `json:"describe_timeout_seconds" env:"PGGATE_DESCRIBE_TIMEOUT_SECONDS"`
	MaxResultLength        int           `json:"max_result_length" env:"PGGATE_MAX_RESULT_LENGTH"`
	TimeoutRules           []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a SQL regex pattern to a specific timeout.
// The first matching rule wins.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ErrorPromptRule maps an error-message pattern to a guidance message that
// is appended to the query tool's textual error payload.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// SanitizationRule defines a regex replacement applied to string values in
// query result rows.
type SanitizationRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// HooksConfig configures before-query command hooks.
type HooksConfig struct {
	DefaultTimeoutSeconds int        `json:"default_timeout_seconds" env:"PGGATE_HOOK_TIMEOUT_SECONDS"`
	BeforeQuery           []HookRule `json:"before_query"`
}

// HookRule defines a single command hook: when Pattern matches the query,
// Command is executed with the SQL on stdin and must answer with a JSON
// verdict on stdout.
type HookRule struct {
	Pattern        string   `json:"pattern"`
	Command        string   `json:"command"`
	Args           []string `json:"args"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// LoggingConfig holds CLI logging settings.
type LoggingConfig struct {
	Level  string `json:"level" env:"PGGATE_LOG_LEVEL"`   // debug, info, warn, error
	Format string `json:"format" env:"PGGATE_LOG_FORMAT"` // json, text
	Output string `json:"output" env:"PGGATE_LOG_OUTPUT"` // stderr, stdout, or file path
}

// DefaultConfig returns the reference configuration: a pool of 1 to 5
// connections and the standard operation timeouts.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			MinConns:              1,
			MaxConns:              5,
			AcquireTimeoutSeconds: 30,
		},
		Query: QueryConfig{
			QueryTimeoutSeconds:    30,
			ListTimeoutSeconds:     10,
			DescribeTimeoutSeconds: 10,
			MaxResultLength:        100000,
		},
	}
}
