package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	pggate "github.com/pggate/postgres-gateway"
)

func runServe(databaseURL, localHost string) error {
	ctx := context.Background()

	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(serverConfig.Logging)

	conn, err := pggate.ParseDatabaseURL(databaseURL, localHost)
	if err != nil {
		return err
	}
	// Stdio carries the MCP protocol once the server starts, so only prompt
	// for a missing password while stdin is still a terminal.
	if conn.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		conn.Password = promptPassword("Password: ")
	}

	gw, err := pggate.New(ctx, conn, serverConfig.Config, logger)
	if err != nil {
		var connErr *pggate.ConnectionError
		if errors.As(err, &connErr) {
			logger.Error().Err(connErr.Err).Msg("startup connectivity probe failed")
		}
		return err
	}
	defer gw.Close(ctx)

	mcpServer := server.NewMCPServer("pggate", version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
	)
	pggate.RegisterMCPHandlers(mcpServer, gw)
	if err := pggate.SyncResources(ctx, mcpServer, gw); err != nil {
		// Schema resources stay reachable through the URI template.
		logger.Warn().Err(err).Msg("failed to sync table resources")
	}

	logger.Info().Str("database", conn.Database).Msg("serving MCP over stdio")
	return server.ServeStdio(mcpServer, server.WithErrorLogger(stdlog.New(logger, "", 0)))
}

// loadServerConfig starts from defaults, merges the optional JSON config
// file, then applies PGGATE_* environment overrides.
func loadServerConfig() (*pggate.ServerConfig, error) {
	config := &pggate.ServerConfig{
		Config: pggate.DefaultConfig(),
		Logging: pggate.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}

	if path := os.Getenv("PGGATE_CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return config, nil
}

func setupLogger(config pggate.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Stdout carries the MCP protocol; logs default to stderr.
	var output io.Writer = os.Stderr
	if config.Output != "" && config.Output != "stderr" && config.Output != "stdout" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(password)
}
