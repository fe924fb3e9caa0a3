// Package timeout resolves per-query timeouts from regex rules.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a SQL regex pattern to a timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Manager resolves a timeout for a SQL statement. Rules are checked in
// order; the first match wins, otherwise the fallback applies.
type Manager struct {
	rules    []compiledRule
	fallback time.Duration
}

// NewManager compiles the rules. Returns an error on an invalid pattern.
func NewManager(fallback time.Duration, rules []Rule) (*Manager, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Manager{rules: compiled, fallback: fallback}, nil
}

// Resolve returns the timeout for the given SQL.
func (m *Manager) Resolve(sql string) time.Duration {
	d, _ := m.ResolveWithPattern(sql)
	return d
}

// ResolveWithPattern returns the timeout and the pattern of the rule that
// matched, or the fallback and an empty pattern.
func (m *Manager) ResolveWithPattern(sql string) (time.Duration, string) {
	if m == nil {
		return 0, ""
	}
	for _, rule := range m.rules {
		if rule.pattern.MatchString(sql) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return m.fallback, ""
}
