// Package review defines the four-section review model and the parser
// that splits a model response into sections.
package review

import (
	"regexp"
	"strings"
)

// Section identifies one of the four review sections.
type Section string

const (
	SectionSecurity    Section = "security"
	SectionPerformance Section = "performance"
	SectionReadability Section = "readability"
	SectionSummary     Section = "summary"
)

// Order is the fixed emission order of sections.
func Order() []Section {
	return []Section{SectionSecurity, SectionPerformance, SectionReadability, SectionSummary}
}

// Heading returns the markdown heading the model is instructed to emit
// for a section.
func (s Section) Heading() string {
	switch s {
	case SectionSecurity:
		return "## SECURITY ANALYSIS"
	case SectionPerformance:
		return "## PERFORMANCE ANALYSIS"
	case SectionReadability:
		return "## READABILITY ANALYSIS"
	case SectionSummary:
		return "## COMPREHENSIVE SUMMARY"
	}
	return ""
}

// markerRegex matches the section markers the system prompt demands.
// Case-insensitive, tolerant of extra interior whitespace; the model is
// not trusted to reproduce the headers exactly.
var markerRegex = regexp.MustCompile(`(?i)##\s+(SECURITY\s+ANALYSIS|PERFORMANCE\s+ANALYSIS|READABILITY\s+ANALYSIS|COMPREHENSIVE\s+SUMMARY)`)

// Result holds the parsed sections. Every section is always present in
// Sections; Missing lists the sections whose marker never appeared so
// callers can substitute placeholder content.
type Result struct {
	Sections map[Section]string
	Missing  []Section
}

// Content returns the trimmed body of a section.
func (r Result) Content(s Section) string {
	return r.Sections[s]
}

// Parse splits a full model response into the four sections using the
// ordered-marker grammar:
//   - content before the first marker is ignored
//   - a section's body runs to the next marker or end of input
//   - a repeated marker replaces the earlier body (last occurrence wins)
//   - a missing marker recovers to empty content and is reported
func Parse(full string) Result {
	sections := map[Section]string{
		SectionSecurity:    "",
		SectionPerformance: "",
		SectionReadability: "",
		SectionSummary:     "",
	}

	matches := markerRegex.FindAllStringSubmatchIndex(full, -1)
	for i, m := range matches {
		name := full[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(full)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(full[bodyStart:bodyEnd])

		switch sectionForMarker(name) {
		case SectionSecurity:
			sections[SectionSecurity] = body
		case SectionPerformance:
			sections[SectionPerformance] = body
		case SectionReadability:
			sections[SectionReadability] = body
		case SectionSummary:
			sections[SectionSummary] = body
		}
	}

	var missing []Section
	seen := make(map[Section]bool)
	for _, m := range matches {
		seen[sectionForMarker(full[m[2]:m[3]])] = true
	}
	for _, s := range Order() {
		if !seen[s] {
			missing = append(missing, s)
		}
	}

	return Result{Sections: sections, Missing: missing}
}

// sectionForMarker maps a matched marker name to its section. The
// summary section answers to either word of its header.
func sectionForMarker(name string) Section {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "SECURITY"):
		return SectionSecurity
	case strings.Contains(upper, "PERFORMANCE"):
		return SectionPerformance
	case strings.Contains(upper, "READABILITY"):
		return SectionReadability
	default:
		return SectionSummary
	}
}
