package domain

// Metadata carries the hierarchical position of a passage within its
// source instruction. Populated at ingestion time by the upstream
// extraction pipeline.
type Metadata struct {
	// DocID is the ingestion-assigned document identifier.
	DocID string `json:"doc_id,omitempty"`

	// AFINumber is the instruction identifier, e.g. "DAFI 21-101".
	AFINumber string `json:"afi_number"`

	// Chapter is the chapter number within the instruction.
	Chapter string `json:"chapter,omitempty"`

	// Paragraph is the dotted hierarchical identifier, e.g. "8.9.2.1".
	Paragraph string `json:"paragraph,omitempty"`

	// Section is the section title, when available.
	Section string `json:"section,omitempty"`

	// Folder groups instructions by functional area.
	Folder string `json:"folder,omitempty"`

	// Category is the publication category.
	Category string `json:"category,omitempty"`

	// ComplianceTier is the tier annotation (e.g. "T-0") when present.
	ComplianceTier string `json:"compliance_tier,omitempty"`

	// PageNumber is the page in the source PDF.
	PageNumber int `json:"page_number,omitempty"`
}

// MetadataFromMap builds Metadata from the flat string map returned by
// vector store adapters. Unknown keys are ignored.
func MetadataFromMap(m map[string]string) Metadata {
	md := Metadata{
		DocID:          m["doc_id"],
		AFINumber:      m["afi_number"],
		Chapter:        m["chapter"],
		Paragraph:      m["paragraph"],
		Section:        m["section"],
		Folder:         m["folder"],
		Category:       m["category"],
		ComplianceTier: m["compliance_tier"],
	}
	if v := m["page_number"]; v != "" {
		md.PageNumber = atoiSafe(v)
	}
	return md
}

// Map returns the flat string form used by store adapters for filtering.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, 8)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("doc_id", m.DocID)
	put("afi_number", m.AFINumber)
	put("chapter", m.Chapter)
	put("paragraph", m.Paragraph)
	put("section", m.Section)
	put("folder", m.Folder)
	put("category", m.Category)
	put("compliance_tier", m.ComplianceTier)
	return out
}

// Passage is a single retrievable unit of instruction text.
type Passage struct {
	// ID is the opaque unique key assigned at ingestion.
	ID string `json:"id"`

	// Text is the passage content.
	Text string `json:"text"`

	// Metadata carries the hierarchical position.
	Metadata Metadata `json:"metadata"`

	// Similarity is the normalised similarity score in [0,1].
	Similarity float64 `json:"similarity_score"`

	// Distance is the raw store distance, when known.
	Distance *float64 `json:"distance,omitempty"`
}

// fingerprintPrefixLen is the number of leading text characters that
// participate in duplicate detection.
const fingerprintPrefixLen = 100

// Fingerprint identifies a passage for deduplication: the first 100
// characters of text combined with the instruction number and paragraph.
// Two hits with the same fingerprint are the same logical passage even if
// they were ingested under different opaque IDs.
func (p Passage) Fingerprint() string {
	text := p.Text
	if len(text) > fingerprintPrefixLen {
		text = text[:fingerprintPrefixLen]
	}
	return text + "_" + p.Metadata.AFINumber + "_" + p.Metadata.Paragraph
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
