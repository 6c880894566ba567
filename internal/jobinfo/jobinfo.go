// Package jobinfo extracts structured fields from free-text job descriptions.
package jobinfo

import "context"

// JobInfo is the structured extraction from a job description. It lives for
// one match request and is never persisted.
type JobInfo struct {
	CoreTechnologies      []string `json:"core_technologies"`
	SecondaryTechnologies []string `json:"secondary_technologies"`
	TechnicalKeywords     []string `json:"technical_keywords"`
	DomainContext         string   `json:"domain_context"`
	// WeightedDescription is a condensed, keyword-rich rendition of the job
	// description optimized for embedding.
	WeightedDescription string `json:"weighted_description"`
}

// Extractor turns raw job-description text into a JobInfo. Implementations
// may fail; callers are expected to degrade to an empty JobInfo rather than
// abort the match.
type Extractor interface {
	Extract(ctx context.Context, jobText string) (JobInfo, error)
}
