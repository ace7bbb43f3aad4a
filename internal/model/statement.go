package model

// Statement is a short natural-language assertion harvested upstream
type Statement struct {
	ID         string  `json:"id"`                // Opaque identifier, stable within a run
	Text       string  `json:"text"`              // The statement text itself
	SourceURL  string  `json:"source_url"`        // Document the statement came from (may be empty)
	Author     *string `json:"author,omitempty"`  // Optional author; nil when unknown
	HasOpinion bool    `json:"has_opinion"`       // Whether the extractor detected a stance
	Domain     string  `json:"domain,omitempty"`  // Host of the source document (informational)
}

// AuthorName returns the author or an empty string when absent
func (s Statement) AuthorName() string {
	if s.Author == nil {
		return ""
	}
	return *s.Author
}

// Embedding is a dense vector index-aligned with the statement list
type Embedding []float32
