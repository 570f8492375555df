package record

import (
	"strings"
	"unicode"
)

// Report is the ValidationReport derived from a Record.
type Report struct {
	AllValuesValid bool     `json:"allValuesValid"`
	EmptyValues    []string `json:"emptyValues"`
	Total          int      `json:"total"`
}

// IsEmpty reports whether v has no content once Unicode whitespace
// (including NBSP) and byte order marks are trimmed.
func IsEmpty(v string) bool {
	return strings.TrimFunc(v, isBlank) == ""
}

func isBlank(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// Validate checks every value of r in a single pass over its triples.
// It does not mutate r, so repeated calls yield equal reports.
func Validate(r *Record) Report {
	report := Report{AllValuesValid: true, EmptyValues: []string{}}
	for _, t := range r.Triples() {
		report.Total++
		if IsEmpty(t.Value) {
			report.AllValuesValid = false
			report.EmptyValues = append(report.EmptyValues, t.QualifiedKey())
		}
	}
	return report
}
