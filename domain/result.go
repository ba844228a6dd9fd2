package domain

// MemberAnnotation is the server-supplied metadata for one query member.
type MemberAnnotation struct {
	Title      string `json:"title,omitempty"`
	ShortTitle string `json:"shortTitle,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Annotation groups member metadata by member kind.
type Annotation struct {
	Measures       map[string]MemberAnnotation `json:"measures,omitempty"`
	Dimensions     map[string]MemberAnnotation `json:"dimensions,omitempty"`
	Segments       map[string]MemberAnnotation `json:"segments,omitempty"`
	TimeDimensions map[string]MemberAnnotation `json:"timeDimensions,omitempty"`
}

// QueryResult is the terminal payload of a successful execution: the result
// rows keyed by member name, plus per-member annotations. It is produced
// once and never mutated afterwards.
type QueryResult struct {
	Data       []map[string]any `json:"data"`
	Annotation Annotation       `json:"annotation,omitempty"`
}
