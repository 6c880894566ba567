// Package scoring holds the pure scoring functions the matcher combines into
// a final rank. All functions are deterministic and never fail on malformed
// records: missing fields degrade to documented defaults.
package scoring

import (
	"time"

	"github.com/foliorank/foliorank/internal/portfolio"
	"github.com/foliorank/foliorank/internal/textnorm"
)

// missingTimestampRecency is the recency score for a project without an
// update timestamp: below anything touched in the last two years, above
// provably stale work.
const missingTimestampRecency = 0.3

// RecencyScore maps the age of updatedAt relative to now onto [0.2, 1.0]
// via a step function. A zero updatedAt yields missingTimestampRecency.
func RecencyScore(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return missingTimestampRecency
	}
	age := now.Sub(updatedAt)
	days := age.Hours() / 24
	switch {
	case days <= 30:
		return 1.0
	case days <= 90:
		return 0.9
	case days <= 180:
		return 0.8
	case days <= 365:
		return 0.6
	case days <= 730:
		return 0.4
	default:
		return 0.2
	}
}

// QualityScore combines documentation completeness, stars/forks engagement,
// and technology breadth into a multiplier in [0, 2.0].
func QualityScore(p portfolio.Project) float64 {
	score := 1.0

	switch {
	case p.NoReadme:
		score *= 0.5
	case p.BadReadme:
		score *= 0.8
	}

	switch {
	case p.Stars > 100:
		score *= 1.6
	case p.Stars > 50:
		score *= 1.4
	case p.Stars > 10:
		score *= 1.2
	}

	switch {
	case p.Forks > 20:
		score *= 1.3
	case p.Forks > 5:
		score *= 1.1
	}

	switch {
	case len(p.Technologies) > 6:
		score *= 1.2
	case len(p.Technologies) > 3:
		score *= 1.1
	}

	if score > 2.0 {
		score = 2.0
	}
	return score
}

// TechnologyOverlapScore measures how much of the job's required technology
// list the project covers, in [0, 1.5]. Both sides are normalized before
// comparison. An empty job list scores 0. A project that covers some of the
// requirement and has at least as many technologies as the job asks for gets
// a 1.2x breadth bonus.
func TechnologyOverlapScore(projectTechs, jobTechs []string) float64 {
	job := textnorm.NormalizeTechnologies(jobTechs)
	if len(job) == 0 {
		return 0
	}
	project := textnorm.NormalizeTechnologies(projectTechs)
	if len(project) == 0 {
		return 0
	}

	have := make(map[string]struct{}, len(project))
	for _, t := range project {
		have[t] = struct{}{}
	}

	matched := 0
	for _, t := range job {
		if _, ok := have[t]; ok {
			matched++
		}
	}

	overlap := float64(matched) / float64(len(job))
	if overlap > 0 && len(project) >= len(job) {
		overlap *= 1.2
	}
	if overlap > 1.5 {
		overlap = 1.5
	}
	return overlap
}
