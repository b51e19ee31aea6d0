package services

import (
	"strings"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// QueryEnhancer rewrites a user query by appending domain vocabulary when
// configured trigger terms match. The original query text is always kept
// verbatim; additions only ever extend it.
type QueryEnhancer struct {
	rules driven.RuleStore
}

// NewQueryEnhancer creates a query enhancer backed by the given rule store.
func NewQueryEnhancer(rules driven.RuleStore) *QueryEnhancer {
	return &QueryEnhancer{rules: rules}
}

// Enhance applies the query rules to a query. Triggers match as
// case-insensitive substrings; the additions of all matched rules are
// appended as a space-joined suffix, order-preserving and duplicate-free.
// Additions already present in the query are skipped, which makes
// enhancement idempotent.
func (e *QueryEnhancer) Enhance(query string) string {
	lower := strings.ToLower(query)

	var additions []string
	seen := make(map[string]bool)
	for _, rule := range e.rules.Rules().QueryRules {
		matched := false
		for _, trigger := range rule.Triggers {
			if trigger != "" && strings.Contains(lower, strings.ToLower(trigger)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, add := range rule.Additions {
			key := strings.ToLower(add)
			if add == "" || seen[key] || strings.Contains(lower, key) {
				continue
			}
			seen[key] = true
			additions = append(additions, add)
		}
	}

	if len(additions) == 0 {
		return query
	}
	enhanced := query + " " + strings.Join(additions, " ")
	logger.Debug("Query enhanced: %q -> %q", query, enhanced)
	return enhanced
}
