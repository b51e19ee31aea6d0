package domain

import (
	"regexp"
	"strings"
)

// ParagraphID is a parsed dotted paragraph identifier, e.g. "8.9.2.1"
// becomes ["8" "9" "2" "1"]. Identifiers define a strict prefix-ancestry
// relation: B descends from A iff A's token sequence is a proper prefix
// of B's.
type ParagraphID []string

// annotationSuffix matches trailing parenthesised annotations such as
// "(T-0)" or "(Added)" which are not part of the identifier itself.
var annotationSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

var paragraphToken = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// ParseParagraphID parses a raw paragraph string into its token sequence.
// Annotation suffixes are stripped and trailing dots ignored. Returns
// false when the string does not conform to the dotted-token grammar.
func ParseParagraphID(raw string) (ParagraphID, bool) {
	s := strings.TrimSpace(raw)
	for {
		stripped := annotationSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Trim(s, ".")
	if s == "" {
		return nil, false
	}

	parts := strings.Split(s, ".")
	id := make(ParagraphID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if !paragraphToken.MatchString(part) {
			return nil, false
		}
		id = append(id, part)
	}
	return id, true
}

// String renders the identifier back to dotted form.
func (p ParagraphID) String() string {
	return strings.Join(p, ".")
}

// IsDescendantOf reports whether p descends from ancestor, i.e. ancestor
// is a proper prefix of p. Equal sequences are not descendants of each
// other.
func (p ParagraphID) IsDescendantOf(ancestor ParagraphID) bool {
	if len(p) <= len(ancestor) || len(ancestor) == 0 {
		return false
	}
	for i, tok := range ancestor {
		if p[i] != tok {
			return false
		}
	}
	return true
}

// DepthBelow returns the extension depth of p below ancestor, or -1 when
// p does not descend from ancestor.
func (p ParagraphID) DepthBelow(ancestor ParagraphID) int {
	if !p.IsDescendantOf(ancestor) {
		return -1
	}
	return len(p) - len(ancestor)
}

// Compare orders identifiers by (token count, token sequence). Used to
// make per-document passage enumeration deterministic.
func (p ParagraphID) Compare(other ParagraphID) int {
	if len(p) != len(other) {
		if len(p) < len(other) {
			return -1
		}
		return 1
	}
	for i := range p {
		if p[i] != other[i] {
			if p[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
