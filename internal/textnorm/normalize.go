// Package textnorm turns raw project fields into embedding-ready text and
// canonical technology tokens.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/foliorank/foliorank/internal/portfolio"
)

// techAliases maps common spelling variants to one canonical token.
// This table is the normalization contract: no stemming or synonym
// expansion happens beyond it.
var techAliases = map[string]string{
	"react.js":       "react",
	"reactjs":        "react",
	"node.js":        "nodejs",
	"node":           "nodejs",
	"vue.js":         "vue",
	"vuejs":          "vue",
	"next.js":        "nextjs",
	"nuxt.js":        "nuxtjs",
	"express.js":     "express",
	"postgresql":     "postgres",
	"golang":         "go",
	"k8s":            "kubernetes",
	"ts":             "typescript",
	"js":             "javascript",
	"py":             "python",
	"tensorflow.js":  "tensorflow",
	"scikit-learn":   "sklearn",
	"mongo":          "mongodb",
	"elastic":        "elasticsearch",
	"rabbit":         "rabbitmq",
	"github actions": "github-actions",
	"gitlab ci":      "gitlab-ci",
	"dotnet":         ".net",
	"c sharp":        "c#",
	"cpp":            "c++",
}

// NormalizeTechnologies lower-cases, trims, and maps each name through the
// alias table, deduplicating while preserving first-seen order. Unknown
// names pass through lower-cased. The result is idempotent: normalizing an
// already-normalized list is a no-op.
func NormalizeTechnologies(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		if canonical, ok := techAliases[n]; ok {
			n = canonical
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var (
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdCodeFence  = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
	mdHeadingRe  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdEmphasisRe = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips markdown decoration (images, links, code blocks, heading
// and emphasis markers) and collapses whitespace. Empty input yields an
// empty string.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	s := mdCodeFence.ReplaceAllString(raw, " ")
	s = mdImageRe.ReplaceAllString(s, " ")
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = mdInlineCode.ReplaceAllString(s, "$1")
	s = mdHeadingRe.ReplaceAllString(s, "")
	s = mdEmphasisRe.ReplaceAllString(s, "$1")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// placeholderDescription is what the scraper stores when a repository has
// no description.
const placeholderDescription = "No description provided"

// BuildWeightedText produces the text a project is embedded under. Repetition
// is the weighting mechanism: repeating a segment biases the embedding toward
// it. Technologies repeat 4x, the detailed paragraph 3x, the three-liner and
// primary language 2x, and the repository description once, so technology
// overlap dominates the semantic signal.
func BuildWeightedText(p portfolio.Project) string {
	var parts []string

	if detailed := CleanText(p.DetailedParagraph); detailed != "" {
		for i := 0; i < 3; i++ {
			parts = append(parts, detailed)
		}
	}

	if techs := NormalizeTechnologies(p.Technologies); len(techs) > 0 {
		sentence := "Technologies used: " + strings.Join(techs, ", ") + "."
		for i := 0; i < 4; i++ {
			parts = append(parts, sentence)
		}
	}

	if threeLiner := CleanText(p.ThreeLiner); threeLiner != "" {
		for i := 0; i < 2; i++ {
			parts = append(parts, threeLiner)
		}
	}

	if desc := CleanText(p.Description); desc != "" && desc != placeholderDescription {
		parts = append(parts, desc)
	}

	if p.Language != "" && p.Language != "Unknown" {
		sentence := "Primary language: " + p.Language + "."
		for i := 0; i < 2; i++ {
			parts = append(parts, sentence)
		}
	}

	return strings.Join(parts, " ")
}
