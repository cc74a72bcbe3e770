package enrichment

// Scores holds the 1-10 ratings produced for one catalog entry.
type Scores struct {
	Relevance   int `json:"relevance"`
	Readability int `json:"readability"`
	Depth       int `json:"depth"`
}

// Record is the decoded form of one enrichment result. The concurrency core
// moves results around as opaque json.RawMessage values; Record is only used
// at the edges (export, reporting) where the fields matter.
type Record struct {
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Scores     Scores   `json:"scores"`
	IsOutdated bool     `json:"is_outdated"`
}
