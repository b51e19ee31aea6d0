package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Ensure RuleStore implements the interface.
var _ driven.RuleStore = (*RuleStore)(nil)

// RuleStore loads the heuristic rule set from a user-editable TOML file
// with embedded defaults. The file only needs the rules being overridden;
// prompt templates and model capabilities merge per key so partial files
// keep the remaining defaults.
type RuleStore struct {
	mu    sync.RWMutex
	path  string
	rules domain.RuleSet
}

// NewRuleStore creates a rule store backed by the TOML file at path. If
// path is empty it defaults to ~/.afiq/rules.toml. A missing file is not
// an error; the embedded defaults apply.
func NewRuleStore(path string) (*RuleStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".afiq", "rules.toml")
	}

	s := &RuleStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rules returns the current rule set.
func (s *RuleStore) Rules() domain.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Path returns the rules file path.
func (s *RuleStore) Path() string {
	return s.path
}

// Reload re-reads the rules file and merges it over the embedded defaults.
func (s *RuleStore) Reload() error {
	rules := DefaultRuleSet()

	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read rules %s: %w", s.path, err)
	}
	if err == nil {
		var loaded domain.RuleSet
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parse rules %s: %w", s.path, err)
		}
		rules = mergeRules(rules, loaded)
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return nil
}

// Watch reloads the rule set whenever the rules file changes, blocking
// until ctx is cancelled. Watching the parent directory survives the
// rename-and-replace pattern editors use on save.
func (s *RuleStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warn("Rules reload failed: %v", err)
				continue
			}
			logger.Debug("Rules reloaded from %s", s.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Rules watcher error: %v", err)
		}
	}
}

// mergeRules applies the loaded overrides over the defaults. Slices
// replace wholesale when present; the Models and Prompts maps merge per
// key so a file can override one model or one mode without restating the
// rest.
func mergeRules(base, loaded domain.RuleSet) domain.RuleSet {
	if len(loaded.QueryRules) > 0 {
		base.QueryRules = loaded.QueryRules
	}
	if len(loaded.ImportantKeywords) > 0 {
		base.ImportantKeywords = loaded.ImportantKeywords
	}
	if len(loaded.TOCPatterns) > 0 {
		base.TOCPatterns = loaded.TOCPatterns
	}
	if len(loaded.ProceduralTriggers) > 0 {
		base.ProceduralTriggers = loaded.ProceduralTriggers
	}
	for name, capability := range loaded.Models {
		base.Models[name] = capability
	}
	for mode, template := range loaded.Prompts {
		base.Prompts[mode] = template
	}
	return base
}

// answerFormat is the shared tail of every mode's user prompt.
const answerFormat = `Format the reply in Markdown with:
- ## Compliance Summary
- ## Immediate Actions
- ## Model Knowledge
- ## Citations`

// DefaultRuleSet returns the embedded rules used when no rules file
// exists.
func DefaultRuleSet() domain.RuleSet {
	return domain.RuleSet{
		QueryRules: []domain.QueryRule{
			{
				Triggers:  []string{"tool", "ctk", "crib"},
				Additions: []string{"tool control", "accountability", "CTK"},
			},
			{
				Triggers:  []string{"fod", "foreign object"},
				Additions: []string{"foreign object damage", "FOD prevention"},
			},
			{
				Triggers:  []string{"safety", "mishap"},
				Additions: []string{"ground safety", "mishap prevention"},
			},
			{
				Triggers:  []string{"uniform", "dress"},
				Additions: []string{"dress and appearance"},
			},
			{
				Triggers:  []string{"maintenance", "aircraft"},
				Additions: []string{"aircraft maintenance", "documentation"},
			},
		},
		ImportantKeywords: []string{
			"shall", "must", "will ensure", "responsible", "accountab",
			"prohibited", "mandatory", "inventory", "inspection",
		},
		TOCPatterns: []string{
			`^\s*chapter\s+\d+`,
			`^\s*section\s+[0-9a-z]+\s*$`,
			`^\s*attachment\s+\d+`,
			`^\s*table\s+\d+`,
			`^\s*figure\s+\d+`,
			`^\s*table\s+of\s+contents`,
			`^\s*[0-9.]+\s*$`,
		},
		ProceduralTriggers: []string{
			"how do i", "how to", "steps to", "step-by-step", "step by step",
			"procedure for", "process for", "walk me through", "checklist",
		},
		Models: map[string]domain.ModelCapability{
			"gpt-4o": {
				SupportsTemperature: true,
				CompletionParam:     "max_tokens",
				FilterModel:         "gpt-4o-mini",
			},
			"gpt-4o-mini": {
				SupportsTemperature: true,
				CompletionParam:     "max_tokens",
			},
			"gpt-5": {
				CompletionParam: "max_completion_tokens",
				ReasoningTier:   true,
				FilterModel:     "gpt-4o-mini",
				FallbackModel:   "gpt-4o",
			},
			"gpt-5-mini": {
				CompletionParam: "max_completion_tokens",
				ReasoningTier:   true,
				FilterModel:     "gpt-4o-mini",
				FallbackModel:   "gpt-4o",
			},
		},
		Prompts: map[string]domain.PromptTemplate{
			string(domain.ModeKnowledgeOnly): {
				System: "You are an Air Force maintenance assistant with no retrieved AFI/DAFI passages. " +
					"Answer from doctrine only and flag model knowledge explicitly.",
				User: "Question:\n{{.Query}}\n\n" +
					"Context:\n(No AFI/DAFI passages were retrieved.)\n\n" +
					answerFormat + "\n" +
					"State 'Model knowledge only' in the Citations section.",
			},
			string(domain.ModeHybrid): {
				System: "You are an Air Force maintenance assistant. Ground answers in the AFI/DAFI context. " +
					"You may add model knowledge when needed, but label it clearly.",
				User: "Question:\n{{.Query}}\n\n" +
					"Sources:\n{{.Sources}}\n\n" +
					"Context:\n{{.Context}}\n\n" +
					answerFormat + "\n" +
					"Tag any doctrine not in the context under Model Knowledge and add a 'Model knowledge' entry in Citations.",
			},
			string(domain.ModeStrict): {
				System: "You are an AFI/DAFI assistant. Respond only with information from the provided context. " +
					"If the context is insufficient, say so plainly.",
				User: "Question:\n{{.Query}}\n\n" +
					"Sources:\n{{.Sources}}\n\n" +
					"Context:\n{{.Context}}\n\n" +
					answerFormat + "\n" +
					"Model Knowledge must read 'None'.",
			},
		},
	}
}
