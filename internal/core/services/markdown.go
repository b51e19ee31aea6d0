package services

import (
	"regexp"
	"strings"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// Canonical answer section headings. Models render these with varying
// case, levels and decoration; normalisation maps them all back here.
const (
	headingComplianceSummary = "Compliance Summary"
	headingImmediateActions  = "Immediate Actions"
	headingModelKnowledge    = "Model Knowledge"
	headingCitations         = "Citations"
)

var canonicalHeadings = []string{
	headingComplianceSummary,
	headingImmediateActions,
	headingModelKnowledge,
	headingCitations,
}

var (
	headingLine  = regexp.MustCompile(`^\s{0,3}#{1,6}\s*(.+?)\s*$`)
	boldOnlyLine = regexp.MustCompile(`^\s*\*\*(.+?)\*\*:?\s*$`)
	bulletLine   = regexp.MustCompile(`^(\s*)[•*]\s+`)
)

// normalizeAnswerMarkdown rewrites model output into the canonical answer
// shape: known section headings become level-2 headings with canonical
// casing (including bold-only pseudo-headings), bullet markers become "-",
// and runs of blank lines collapse to one.
func normalizeAnswerMarkdown(answer string) string {
	lines := strings.Split(strings.ReplaceAll(answer, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0

	for _, line := range lines {
		if heading, ok := canonicalHeading(line); ok {
			line = "## " + heading
		} else {
			line = bulletLine.ReplaceAllString(line, "${1}- ")
		}

		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
			line = ""
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// canonicalHeading reports whether the line is some rendering of a
// canonical section heading, and if so which one.
func canonicalHeading(line string) (string, bool) {
	var title string
	if m := headingLine.FindStringSubmatch(line); m != nil {
		title = m[1]
	} else if m := boldOnlyLine.FindStringSubmatch(line); m != nil {
		title = m[1]
	} else {
		return "", false
	}

	title = strings.TrimSpace(strings.Trim(title, "*:"))
	for _, canonical := range canonicalHeadings {
		if strings.EqualFold(title, canonical) {
			return canonical, true
		}
	}
	return "", false
}

// rebuildCitations replaces whatever citations section the model produced
// with one derived from the passages actually used, so citations never
// reflect hallucinated references. A model-knowledge entry is added when
// the answer leans on doctrine beyond the retrieved passages.
func rebuildCitations(answer string, sources []domain.Source) string {
	lines := strings.Split(answer, "\n")
	cut := len(lines)
	for i, line := range lines {
		if heading, ok := canonicalHeading(line); ok && heading == headingCitations {
			cut = i
			break
		}
	}
	body := strings.TrimSpace(strings.Join(lines[:cut], "\n"))

	var b strings.Builder
	b.WriteString(body)
	if body != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("## " + headingCitations + "\n")
	for _, s := range sources {
		b.WriteString("- " + s.Label() + "\n")
	}
	if len(sources) == 0 || hasModelKnowledgeSection(body) {
		b.WriteString("- Model knowledge (general doctrine, not from retrieved passages)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func hasModelKnowledgeSection(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if heading, ok := canonicalHeading(line); ok && heading == headingModelKnowledge {
			return true
		}
	}
	return false
}
