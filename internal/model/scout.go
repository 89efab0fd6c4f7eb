// Package model defines the entities produced and consumed by the
// company-discovery pipeline. All entities live for a single pipeline
// invocation; nothing here is persisted.
package model

// SearchResult is a single hit from the external search provider.
// URL may be empty for degenerate provider responses.
type SearchResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
}

// Candidate is a provisional, extraction-stage company guess. ID is a
// synthetic identifier assigned at extraction time and threaded through
// verification so results re-associate without relying on name matching.
type Candidate struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Website      string   `json:"website"`
	Domain       string   `json:"domain"`
	Reason       string   `json:"reason"`
	InitialScore int      `json:"initial_score"`
	Sources      []string `json:"sources"`
}

// VerificationResult is the strong model's judgment for one candidate.
type VerificationResult struct {
	CandidateID   string `json:"candidate_id"`
	CompanyName   string `json:"company_name"`
	URLConfirmed  bool   `json:"url_confirmed"`
	CorrectURL    string `json:"correct_url,omitempty"`
	MatchesScope  bool   `json:"matches_scope"`
	ScopeEvidence string `json:"scope_evidence"`
	AdjustedScore int    `json:"adjusted_score"`
	Description   string `json:"description"`
}

// RelevanceLevel buckets a 1-10 relevance score for display.
type RelevanceLevel string

const (
	RelevanceHigh   RelevanceLevel = "high"
	RelevanceMedium RelevanceLevel = "medium"
	RelevanceLow    RelevanceLevel = "low"
)

// RelevanceLevelFor maps a 1-10 score to a level: high >= 7, medium >= 5.
func RelevanceLevelFor(score int) RelevanceLevel {
	switch {
	case score >= 7:
		return RelevanceHigh
	case score >= 5:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// CompanyStatus marks whether a company cleared the relevance threshold.
type CompanyStatus string

const (
	StatusAccepted CompanyStatus = "accepted"
	StatusRejected CompanyStatus = "rejected"
)

// Company is the final record returned to the caller. The output list
// contains exactly one Company per unique normalized domain.
type Company struct {
	Name           string         `json:"name"`
	Website        string         `json:"website"`
	Domain         string         `json:"domain"`
	Description    string         `json:"description"`
	RelevanceScore int            `json:"relevance_score"`
	RelevanceLevel RelevanceLevel `json:"relevance_level"`
	Status         CompanyStatus  `json:"status"`
	Reason         string         `json:"reason"`
	Sources        []string       `json:"sources"`
	Mentions       int            `json:"mentions"`
	Verified       bool           `json:"verified"`
}

// ScoutRequest is the inbound tool-call payload.
type ScoutRequest struct {
	Criteria          string `json:"criteria"`
	MaxResults        int    `json:"max_results"`
	MinRelevanceScore int    `json:"min_relevance_score"`
}

// Normalize clamps MaxResults to [5,50] (default 20) and
// MinRelevanceScore to [1,10] (default 5).
func (r *ScoutRequest) Normalize() {
	if r.MaxResults == 0 {
		r.MaxResults = 20
	}
	if r.MaxResults < 5 {
		r.MaxResults = 5
	}
	if r.MaxResults > 50 {
		r.MaxResults = 50
	}
	if r.MinRelevanceScore == 0 {
		r.MinRelevanceScore = 5
	}
	if r.MinRelevanceScore < 1 {
		r.MinRelevanceScore = 1
	}
	if r.MinRelevanceScore > 10 {
		r.MinRelevanceScore = 10
	}
}

// ScoutResult is the structured payload returned to the caller.
type ScoutResult struct {
	Companies             []Company `json:"companies" yaml:"companies"`
	InScopeCount          int       `json:"in_scope_count" yaml:"in_scope_count"`
	OutOfScopeCount       int       `json:"out_of_scope_count" yaml:"out_of_scope_count"`
	QueriesRun            int       `json:"queries_run" yaml:"queries_run"`
	TotalSourcesProcessed int       `json:"total_sources_processed" yaml:"total_sources_processed"`
	SearchQueries         []string  `json:"search_queries" yaml:"search_queries"`
}
