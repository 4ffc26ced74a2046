package validation

import (
	"fmt"
	"strings"
)

// Rule names reported in Error.Rule.
const (
	RuleRequired  = "required"
	RuleIPv4      = "ipv4"
	RulePattern   = "pattern"
	RuleRange     = "range"
	RuleMin       = "min"
	RuleChoice    = "choice"
	RuleMaxLength = "max_length"
	RuleSlug      = "slug"
	RuleExclusive = "exclusive"
	RuleNoControl = "no_control"
	RuleNoQuote   = "no_quote"
	RuleToken     = "token"
)

// Error is a single violated constraint.
type Error struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value any    `json:"value"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: violates %s (value %v)", e.Field, e.Rule, e.Value)
}

// Errors collects every violation found on one entity.
type Errors []Error

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil for an empty list so callers never hold a typed nil.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// Has reports whether field failed the given rule.
func (es Errors) Has(field, rule string) bool {
	for _, e := range es {
		if e.Field == field && e.Rule == rule {
			return true
		}
	}
	return false
}

func (es *Errors) add(field, rule string, value any) {
	*es = append(*es, Error{Field: field, Rule: rule, Value: value})
}

// merge re-roots nested errors under a parent field, e.g. remotes[0].config.port.
func (es *Errors) merge(prefix string, nested Errors) {
	for _, e := range nested {
		e.Field = prefix + "." + e.Field
		*es = append(*es, e)
	}
}
