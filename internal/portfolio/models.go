package portfolio

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested project does not exist.
var ErrNotFound = errors.New("project not found")

// Project is a single portfolio entry, usually scraped from a repository
// and enriched with generated summaries.
type Project struct {
	Name              string
	URL               string
	Description       string // repository description
	ReadmeContent     string
	ThreeLiner        string // generated short pitch
	DetailedParagraph string // generated long-form summary
	Technologies      []string
	FileTree          []string
	BadReadme         bool
	NoReadme          bool
	Stars             int
	Forks             int
	Language          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	HiddenFromSearch  bool
}
