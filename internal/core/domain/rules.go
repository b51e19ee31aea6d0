package domain

// QueryRule appends domain vocabulary to queries that mention any of its
// trigger terms. Triggers match as case-insensitive substrings.
type QueryRule struct {
	Triggers  []string `toml:"triggers"`
	Additions []string `toml:"additions"`
}

// PromptTemplate holds the system and user templates for one answer
// mode. Templates use text/template syntax with the fields documented
// on services.PromptContext.
type PromptTemplate struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

// ModelCapability describes how to talk to a generation model. Resolved
// once at configuration time so the pipeline never pattern-matches model
// name strings (capabilities travel with the request instead).
type ModelCapability struct {
	// SupportsTemperature is false for reasoning-tier models that reject
	// the temperature parameter.
	SupportsTemperature bool `toml:"supports_temperature"`

	// CompletionParam is the wire name of the completion budget
	// parameter: "max_tokens" or "max_completion_tokens".
	CompletionParam string `toml:"completion_param"`

	// ReasoningTier marks models that are known to intermittently return
	// empty answers and therefore get a fallback retry.
	ReasoningTier bool `toml:"reasoning_tier"`

	// FilterModel substitutes a cheaper model for relevance filtering.
	// Empty means the generation model filters its own candidates.
	FilterModel string `toml:"filter_model"`

	// FallbackModel is the stable model retried once when a
	// reasoning-tier call fails or returns an empty answer.
	FallbackModel string `toml:"fallback_model"`
}

// RuleSet is the externally supplied heuristic configuration that drives
// query enhancement, content-usefulness filtering, procedural-intent
// detection, and model capability resolution. Behaviour changes ship as
// data, not code.
type RuleSet struct {
	// QueryRules drive query enhancement (4.2).
	QueryRules []QueryRule `toml:"query_rules"`

	// ImportantKeywords keep short but high-value passages that would
	// otherwise be rejected by the usefulness heuristic. Matched as
	// case-insensitive substrings.
	ImportantKeywords []string `toml:"important_keywords"`

	// TOCPatterns are anchored regular expressions matched
	// case-insensitively against passage text to reject table-of-contents
	// and header-only passages.
	TOCPatterns []string `toml:"toc_patterns"`

	// ProceduralTriggers are case-insensitive substrings of a query that
	// indicate step-by-step intent.
	ProceduralTriggers []string `toml:"procedural_triggers"`

	// Models maps model identifiers to their capabilities.
	Models map[string]ModelCapability `toml:"models"`

	// Prompts maps answer modes to their templates. Missing modes fall
	// back to embedded defaults.
	Prompts map[string]PromptTemplate `toml:"prompts"`
}

// Capability resolves the capability descriptor for a model. Unknown
// models get a conservative default: standard completion parameter,
// temperature supported, no fallback tier.
func (r RuleSet) Capability(model string) ModelCapability {
	if cap, ok := r.Models[model]; ok {
		if cap.CompletionParam == "" {
			cap.CompletionParam = "max_tokens"
		}
		return cap
	}
	return ModelCapability{
		SupportsTemperature: true,
		CompletionParam:     "max_tokens",
	}
}
