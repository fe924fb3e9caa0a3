// Package errprompt matches error messages against configured patterns and
// returns guidance text for the calling agent.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error-message regex to a guidance message.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher evaluates error messages against all rules, top to bottom.
type Matcher struct {
	rules []compiledRule
}

// New compiles the rules. Returns an error on an invalid pattern.
func New(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Guidance returns the messages of all matching rules joined with newlines,
// or an empty string. A nil Matcher never matches.
func (m *Matcher) Guidance(errMsg string) string {
	if m == nil {
		return ""
	}
	var matches []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// Matched returns the patterns that matched the message, for logging.
func (m *Matcher) Matched(errMsg string) []string {
	if m == nil {
		return nil
	}
	var patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
