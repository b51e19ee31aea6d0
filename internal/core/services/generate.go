package services

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// PromptContext is the data available to mode prompt templates.
type PromptContext struct {
	// Query is the user's question verbatim.
	Query string

	// Context is the assembled passage text. Empty in knowledge-only mode.
	Context string

	// Sources is a human-readable summary of the cited passages, one
	// labelled line each.
	Sources string
}

// GenerateInput is one generation request.
type GenerateInput struct {
	Query     string
	Context   string
	Sources   []domain.Source
	Mode      domain.AnswerMode
	Model     string
	MaxTokens int
}

// ResponseGenerator renders the mode prompt, calls the generation service
// with a single fallback-model retry, and post-processes the answer into
// canonical Markdown with trustworthy citations.
type ResponseGenerator struct {
	llm         driven.GenerationService
	rules       driven.RuleStore
	temperature float64
}

// NewResponseGenerator creates a response generator. Temperature is only
// sent to models whose capability allows it.
func NewResponseGenerator(llm driven.GenerationService, rules driven.RuleStore, temperature float64) *ResponseGenerator {
	return &ResponseGenerator{llm: llm, rules: rules, temperature: temperature}
}

// Generate produces the answer Markdown and reports the model that
// actually answered. A failed or empty primary call on a reasoning-tier
// model is retried once against its stable fallback; a second failure is
// surfaced as a hard error.
func (g *ResponseGenerator) Generate(ctx context.Context, in GenerateInput) (string, string, error) {
	logger.Section("Generation")
	rules := g.rules.Rules()

	tmpl, ok := rules.Prompts[string(in.Mode)]
	if !ok {
		return "", "", fmt.Errorf("no prompt template for mode %q: %w", in.Mode, domain.ErrInvalidInput)
	}

	promptCtx := PromptContext{
		Query:   in.Query,
		Context: in.Context,
		Sources: sourceSummary(in.Sources),
	}
	system, err := renderTemplate("system", tmpl.System, promptCtx)
	if err != nil {
		return "", "", err
	}
	user, err := renderTemplate("user", tmpl.User, promptCtx)
	if err != nil {
		return "", "", err
	}

	model := in.Model
	capability := rules.Capability(model)
	answer, err := g.complete(ctx, model, capability, system, user, in.MaxTokens)

	if (err != nil || strings.TrimSpace(answer) == "") &&
		capability.ReasoningTier && capability.FallbackModel != "" {
		if err != nil {
			logger.Warn("Primary model %s failed (%v), retrying with %s", model, err, capability.FallbackModel)
		} else {
			logger.Warn("Primary model %s returned an empty answer, retrying with %s", model, capability.FallbackModel)
		}
		model = capability.FallbackModel
		answer, err = g.complete(ctx, model, rules.Capability(model), system, user, in.MaxTokens)
	}

	if err != nil {
		return "", model, fmt.Errorf("generating with %s: %w: %v", model, domain.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", model, fmt.Errorf("generating with %s: %w", model, domain.ErrEmptyAnswer)
	}

	answer = normalizeAnswerMarkdown(answer)
	answer = rebuildCitations(answer, in.Sources)
	logger.Info("Answer generated by %s (%d chars)", model, len(answer))
	return answer, model, nil
}

func (g *ResponseGenerator) complete(
	ctx context.Context, model string, capability domain.ModelCapability,
	system, user string, maxTokens int,
) (string, error) {
	return g.llm.Complete(ctx, driven.CompletionRequest{
		Model:       model,
		System:      system,
		User:        user,
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
		Capability:  capability,
	})
}

func renderTemplate(name, text string, data PromptContext) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing %s prompt template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt template: %w", name, err)
	}
	return b.String(), nil
}

// sourceSummary renders one labelled line per source for the prompt.
func sourceSummary(sources []domain.Source) string {
	if len(sources) == 0 {
		return "(no sources)"
	}
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		lines = append(lines, s.Label())
	}
	return strings.Join(lines, "\n")
}
