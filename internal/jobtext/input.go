// Package jobtext normalizes the different shapes a job description arrives
// in (plain text, a structured field map, or a PDF file) into one plain-text
// form before it reaches the matcher.
package jobtext

import (
	"sort"
	"strings"
)

// Input is a job description in one of two shapes: free text or a mapping
// of named fields (title, company, description, ...). Exactly one shape is
// set; Resolve flattens either to plain text.
type Input struct {
	text   string
	fields map[string]string
}

// Text wraps a free-text job description.
func Text(s string) Input {
	return Input{text: s}
}

// Structured wraps a field map, e.g. {"title": ..., "description": ...}.
func Structured(fields map[string]string) Input {
	return Input{fields: fields}
}

// knownFieldOrder lists the fields a structured posting usually carries, in
// the order they should read. Unknown fields follow alphabetically.
var knownFieldOrder = []string{"title", "company", "description", "requirements"}

// Resolve flattens the input to plain text. A structured input becomes
// "Field: value" lines with known fields first, so the result is
// deterministic for a given map.
func (in Input) Resolve() string {
	if in.fields == nil {
		return strings.TrimSpace(in.text)
	}

	rank := make(map[string]int, len(knownFieldOrder))
	for i, k := range knownFieldOrder {
		rank[k] = i
	}

	keys := make([]string, 0, len(in.fields))
	for k := range in.fields {
		if strings.TrimSpace(in.fields[k]) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iKnown := rank[keys[i]]
		rj, jKnown := rank[keys[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleCase(k))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(in.fields[k]))
	}
	return b.String()
}

// IsEmpty reports whether the input resolves to no text at all.
func (in Input) IsEmpty() bool {
	return in.Resolve() == ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
