package jobinfo

import "strings"

// buildPrompt asks the model to restructure a job description for
// embedding-based matching. The field names must match JobInfo's JSON tags.
func buildPrompt(jobText string) string {
	var b strings.Builder
	b.WriteString(`You will be given a job description. Extract and structure the following information to optimize it for embedding-based project matching.

Return a single JSON object with exactly these fields and no other text:
{
  "core_technologies": ["Technology 1", "Technology 2"],
  "secondary_technologies": ["Tech 1", "Tech 2"],
  "technical_keywords": ["keyword1", "keyword2"],
  "domain_context": "Brief description of the business domain",
  "weighted_description": "Keyword-rich condensed description for embeddings"
}

Guidelines:
- core_technologies: essential, must-have technical skills required by the job.
- secondary_technologies: nice-to-have or secondary technologies mentioned.
- technical_keywords: important technical terms, frameworks, and methodologies (e.g. "microservices", "TDD", "CI/CD").
- Focus on technologies that would appear in actual projects or repositories.
- Normalize technology names (e.g. "React.js" -> "React").
- The weighted_description should emphasize the most important technical requirements.

Job description:
`)
	b.WriteString(jobText)
	return b.String()
}
