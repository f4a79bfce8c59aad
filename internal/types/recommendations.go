package types

// JobPosting describes a job listing as supplied by the external match
// source. The sync core never writes these back.
type JobPosting struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Salary       string   `json:"salary"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Posted       string   `json:"posted"`
}

// RankedMatch pairs a job posting with the match score computed by the
// external scoring model. The score is consumed as-is and only sorted by.
type RankedMatch struct {
	Job   JobPosting `json:"job"`
	Score float64    `json:"score"`
}

// JobRecommendation is a view-ready recommendation row derived from the
// profile and the external ranked match list. Never persisted.
type JobRecommendation struct {
	Rank  int        `json:"rank"`
	Job   JobPosting `json:"job"`
	Score float64    `json:"score"`
}
