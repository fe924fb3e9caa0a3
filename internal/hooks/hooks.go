// Package hooks runs configured external commands before query execution.
// A hook receives the SQL on stdin and answers with a JSON verdict on
// stdout; it can accept, reject, or rewrite the query.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Rule defines one before-query hook. Timeout 0 means the runner default.
type Rule struct {
	Pattern string
	Command string
	Args    []string
	Timeout time.Duration
}

// Verdict is the JSON a hook must write to stdout.
type Verdict struct {
	Accept        bool   `json:"accept"`
	ModifiedQuery string `json:"modified_query,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type compiledHook struct {
	pattern *regexp.Regexp
	command string
	args    []string
	timeout time.Duration
}

// Runner executes matching hooks as a middleware chain over the query text.
type Runner struct {
	hooks  []compiledHook
	logger zerolog.Logger
}

// NewRunner compiles the rules. Returns an error on an invalid pattern or a
// missing default timeout.
func NewRunner(defaultTimeout time.Duration, rules []Rule, logger zerolog.Logger) (*Runner, error) {
	if defaultTimeout <= 0 && len(rules) > 0 {
		return nil, errors.New("hooks: default timeout must be > 0 when hooks are configured")
	}
	compiled := make([]compiledHook, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("hooks: invalid regex pattern %q: %v", r.Pattern, err)
		}
		t := r.Timeout
		if t == 0 {
			t = defaultTimeout
		}
		compiled[i] = compiledHook{pattern: re, command: r.Command, args: r.Args, timeout: t}
	}
	return &Runner{hooks: compiled, logger: logger}, nil
}

// Run passes the query through every matching hook in order. Each hook sees
// the output of the previous one. Returns the final query and the commands
// that ran; any hook failure or rejection stops the chain.
func (r *Runner) Run(ctx context.Context, query string) (string, []string, error) {
	current := query
	var executed []string
	for _, hook := range r.hooks {
		if !hook.pattern.MatchString(current) {
			continue
		}
		output, err := r.invoke(ctx, hook, current)
		if err != nil {
			return "", nil, fmt.Errorf("before_query hook error: %w", err)
		}
		executed = append(executed, hook.command)

		var verdict Verdict
		if err := json.Unmarshal(output, &verdict); err != nil {
			return "", nil, fmt.Errorf("before_query hook returned unparseable response (command: %s): %w", hook.command, err)
		}
		if !verdict.Accept {
			msg := "query rejected by hook"
			if verdict.ErrorMessage != "" {
				msg = verdict.ErrorMessage
			}
			return "", nil, errors.New(msg)
		}
		if verdict.ModifiedQuery != "" {
			current = verdict.ModifiedQuery
		}
	}
	return current, executed, nil
}

func (r *Runner) invoke(ctx context.Context, hook compiledHook, input string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, hook.timeout)
	defer cancel()

	// Command and args are passed separately; no shell interpretation.
	cmd := exec.CommandContext(ctx, hook.command, hook.args...)
	cmd.Stdin = strings.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if stderr.Len() > 0 {
		r.logger.Debug().Str("command", hook.command).Str("stderr", stderr.String()).Msg("hook stderr output")
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("hook timed out: %s", hook.command)
		}
		return nil, fmt.Errorf("hook failed (command: %s): %w", hook.command, err)
	}
	return output, nil
}
