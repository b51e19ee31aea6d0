package services

import (
	"regexp"
	"strings"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// IntentSignals is the classifier's verdict for one query. Procedural
// queries get deeper retrieval, hierarchy expansion and no relevance
// filtering, since sub-steps the filter would discard are exactly what
// the asker wants.
type IntentSignals struct {
	// Procedural reports step-by-step intent.
	Procedural bool

	// DisableFilter turns the relevance filter off for this query.
	DisableFilter bool

	// RetrievalFloor is the minimum number of results to retrieve; zero
	// means no floor.
	RetrievalFloor int

	// ExpandHierarchy requests descendant expansion of the seed passages.
	ExpandHierarchy bool
}

// IntentDetector classifies one query, optionally informed by the seed
// passages of a first retrieval pass. The orchestrator acts on the
// returned signals individually, so detectors are free to request any
// combination of them.
type IntentDetector interface {
	Classify(query string, seeds []domain.Passage) IntentSignals
}

// stepLikeLine matches numbered or "step N" lines in passage text.
var stepLikeLine = regexp.MustCompile(`(?im)^\s*(step\s+\d+|\d+[.)])\s+\S`)

// IntentClassifier detects procedural (step-by-step) intent from query
// phrasing and from step-like structure in the retrieved passages. The
// trigger vocabulary is configuration, not code.
type IntentClassifier struct {
	rules driven.RuleStore

	// floor is the minimum retrieval depth forced for procedural queries.
	floor int
}

// NewIntentClassifier creates a classifier. A non-positive floor falls
// back to the default (8).
func NewIntentClassifier(rules driven.RuleStore, floor int) *IntentClassifier {
	if floor <= 0 {
		floor = 8
	}
	return &IntentClassifier{rules: rules, floor: floor}
}

// Classify inspects the query and the seed passages. Seeds may be nil for
// a pre-retrieval classification based on phrasing alone.
func (c *IntentClassifier) Classify(query string, seeds []domain.Passage) IntentSignals {
	procedural := c.matchesTrigger(query) || hasStepStructure(seeds)
	if !procedural {
		return IntentSignals{}
	}

	logger.Info("Procedural intent detected, deepening retrieval and disabling filter")
	return IntentSignals{
		Procedural:      true,
		DisableFilter:   true,
		RetrievalFloor:  c.floor,
		ExpandHierarchy: true,
	}
}

func (c *IntentClassifier) matchesTrigger(query string) bool {
	lower := strings.ToLower(query)
	for _, trigger := range c.rules.Rules().ProceduralTriggers {
		if trigger != "" && strings.Contains(lower, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

// hasStepStructure reports whether at least two seed passages look like
// enumerated steps.
func hasStepStructure(seeds []domain.Passage) bool {
	count := 0
	for _, seed := range seeds {
		if stepLikeLine.MatchString(seed.Text) {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}
