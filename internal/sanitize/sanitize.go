// Package sanitize masks sensitive values in query result rows using
// regex replacement rules.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule is one pattern/replacement pair.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Sanitizer applies every rule, in order, to string values in result rows.
type Sanitizer struct {
	rules []compiledRule
}

// New compiles the rules. Returns an error on an invalid pattern.
func New(rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Sanitizer{rules: compiled}, nil
}

// Apply sanitizes every field value in the rows, recursing into JSONB
// maps and arrays. Values are modified in place; the slice is returned for
// chaining. A nil Sanitizer is a no-op.
func (s *Sanitizer) Apply(rows []map[string]any) []map[string]any {
	if s == nil || len(s.rules) == 0 {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = s.value(v)
		}
	}
	return rows
}

func (s *Sanitizer) value(v any) any {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range s.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]any:
		for k, item := range val {
			val[k] = s.value(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = s.value(item)
		}
		return val
	default:
		// Numeric, bool, nil — nothing to mask.
		return v
	}
}
