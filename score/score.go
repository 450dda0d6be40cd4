// Package score turns an analysis result into a 0-100 score and a letter grade.
//
// Every issue deducts a weight keyed by its severity. Within one category the
// weights are sorted from heaviest to lightest and each further issue counts
// for 75% of the one before it, so a single noisy category cannot dominate the
// score. Adding an issue never raises the score and removing one never lowers it.
package score

import (
	"cmp"
	"math"
	"slices"

	"github.com/erraggy/wmtools/checks"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/internal/severity"
)

// Severity weights and the per-category decay factor.
const (
	CriticalWeight = 10.0
	WarningWeight  = 4.0
	InfoWeight     = 1.0
	Decay          = 0.75
)

// Grade is a letter grade.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Deduction is the total deducted for one category.
type Deduction struct {
	Category issues.Category `json:"category" yaml:"category"`
	Issues   int             `json:"issues" yaml:"issues"`
	Points   float64         `json:"points" yaml:"points"`
}

// Score is the computed score of one web map.
type Score struct {
	Value int   `json:"value" yaml:"value"`
	Grade Grade `json:"grade" yaml:"grade"`
	// Deductions are ordered by category report order.
	Deductions []Deduction `json:"deductions,omitempty" yaml:"deductions,omitempty"`
}

// Weight returns the base deduction for one issue of severity s.
func Weight(s severity.Severity) float64 {
	switch s {
	case severity.SeverityCritical:
		return CriticalWeight
	case severity.SeverityWarning:
		return WarningWeight
	default:
		return InfoWeight
	}
}

// Calculate scores an analysis result. A nil result scores 100.
func Calculate(result *checks.AnalysisResult) Score {
	if result == nil {
		return FromIssues(nil)
	}
	return FromIssues(result.Issues)
}

// FromIssues scores a set of issues. The order of issues does not matter.
func FromIssues(found []issues.Issue) Score {
	weights := make(map[issues.Category][]float64)
	for _, i := range found {
		weights[i.Category] = append(weights[i.Category], Weight(i.Severity))
	}

	var s Score
	total := 0.0
	for _, c := range orderedCategories(weights) {
		w := weights[c]
		slices.SortFunc(w, func(a, b float64) int { return cmp.Compare(b, a) })
		points, factor := 0.0, 1.0
		for _, x := range w {
			points += x * factor
			factor *= Decay
		}
		total += points
		s.Deductions = append(s.Deductions, Deduction{Category: c, Issues: len(w), Points: points})
	}
	s.Value = int(math.Round(math.Max(0, 100-total)))
	s.Grade = GradeFor(s.Value)
	return s
}

// orderedCategories returns the categories present in weights in report
// order, followed by unknown categories sorted by name.
func orderedCategories(weights map[issues.Category][]float64) []issues.Category {
	var out []issues.Category
	known := make(map[issues.Category]bool)
	for _, c := range issues.AllCategories() {
		known[c] = true
		if _, ok := weights[c]; ok {
			out = append(out, c)
		}
	}
	var extra []issues.Category
	for c := range weights {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// GradeFor maps a score to its letter grade: A from 90, B from 80, C from 70,
// D from 60, F below.
func GradeFor(value int) Grade {
	switch {
	case value >= 90:
		return GradeA
	case value >= 80:
		return GradeB
	case value >= 70:
		return GradeC
	case value >= 60:
		return GradeD
	default:
		return GradeF
	}
}
