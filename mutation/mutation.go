// Package mutation defines the mode and outcome types shared by every mutator.
//
// A mutator never reads a process-wide debug flag: the [Mode] is passed into
// each call. In [DryRun] mode a mutator reports exactly what it would write
// and leaves the document untouched.
package mutation

import (
	"fmt"
	"strings"
)

// Mode selects whether a mutator writes or only reports.
type Mode int

const (
	// DryRun computes and reports every decision without changing the document.
	DryRun Mode = iota
	// Apply changes the document.
	Apply
)

// String returns the name of the mode.
func (m Mode) String() string {
	if m == Apply {
		return "apply"
	}
	return "dry-run"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// IsDryRun reports whether the mode forbids writes.
func (m Mode) IsDryRun() bool {
	return m != Apply
}

// ModeFor returns DryRun when debug is true and Apply otherwise.
func ModeFor(debug bool) Mode {
	if debug {
		return DryRun
	}
	return Apply
}

// ParseMode accepts "apply", "dry-run", "dryrun" and "debug".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apply":
		return Apply, nil
	case "dry-run", "dryrun", "debug", "":
		return DryRun, nil
	default:
		return DryRun, fmt.Errorf("mutation: unknown mode %q", s)
	}
}

// Skip reasons reported on outcomes that were not applied.
const (
	ReasonFieldNotPresent = "field not present"
	ReasonDryRun          = "debug mode: no write performed"
	ReasonNotQueryable    = "layer is not a feature layer or table"
	ReasonUnchanged       = "already up to date"
	ReasonNotInSource     = "field not in source form"
	ReasonSourceLayer     = "layer is the propagation source"
	ReasonPersistFailed   = "persist failed"
	ReasonLayerNotFound   = "layer not in web map"
)

// DetailUnchanged notes an applied outcome that rewrote the value it found.
const DetailUnchanged = "already up to date; value rewritten unchanged"

// Outcome is the result of a mutator for one layer, or for one layer and
// field when the mutator works per field.
type Outcome struct {
	LayerID string `json:"layer_id" yaml:"layer_id"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	// Field is the targeted field name.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	// Applied is true when the mutator wrote to the document in Apply mode.
	Applied bool `json:"applied" yaml:"applied"`
	// Unchanged is set on an applied outcome whose write left the value as
	// it was.
	Unchanged bool `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
	// Eligible is true when the layer matched the mutator's preconditions,
	// whether or not a write happened.
	Eligible      bool   `json:"eligible" yaml:"eligible"`
	PreviousValue string `json:"previous_value,omitempty" yaml:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty" yaml:"new_value,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty" yaml:"skipped_reason,omitempty"`
	// Detail carries mutator-specific notes, such as a form source promotion.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	// Err is set when persisting the change failed.
	Err error `json:"-" yaml:"-"`
	// Error is the text of Err for serialized output.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Skipped reports whether the outcome carries a skip reason.
func (o Outcome) Skipped() bool {
	return o.SkippedReason != ""
}

// Failed reports whether persisting the outcome failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// String renders the outcome as a single line.
func (o Outcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", o.LayerID)
	if o.Title != "" {
		fmt.Fprintf(&b, " (%s)", o.Title)
	}
	if o.Field != "" {
		fmt.Fprintf(&b, " [%s]", o.Field)
	}
	switch {
	case o.Failed():
		fmt.Fprintf(&b, ": failed: %v", o.Err)
	case o.Applied:
		fmt.Fprintf(&b, ": %q -> %q", o.PreviousValue, o.NewValue)
	default:
		fmt.Fprintf(&b, ": skipped: %s", o.SkippedReason)
		if o.NewValue != "" && o.SkippedReason == ReasonDryRun {
			fmt.Fprintf(&b, " (would write %q)", o.NewValue)
		}
	}
	if o.Detail != "" {
		fmt.Fprintf(&b, "; %s", o.Detail)
	}
	return b.String()
}

// MarkFailed records a persistence failure on an applied outcome.
func (o *Outcome) MarkFailed(err error) {
	o.Applied = false
	o.Err = err
	o.Error = err.Error()
	o.SkippedReason = ReasonPersistFailed
}

// Result is the ordered outcome list of one mutator run over one document.
type Result struct {
	Mode     Mode      `json:"mode" yaml:"mode"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
	// Success is true when at least one layer was eligible, even in DryRun
	// mode where nothing is written.
	Success bool `json:"success" yaml:"success"`
}

// NewResult returns an empty result for mode.
func NewResult(mode Mode) *Result {
	return &Result{Mode: mode, Outcomes: []Outcome{}}
}

// Add appends an outcome and updates Success.
func (r *Result) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Eligible {
		r.Success = true
	}
}

// Merge appends the outcomes of other.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for _, o := range other.Outcomes {
		r.Add(o)
	}
}

// Applied returns the outcomes that changed the document.
func (r *Result) Applied() []Outcome {
	return r.filter(func(o Outcome) bool { return o.Applied })
}

// Skipped returns the outcomes that were not applied and did not fail.
func (r *Result) Skipped() []Outcome {
	return r.filter(func(o Outcome) bool { return !o.Applied && !o.Failed() })
}

// Failed returns the outcomes whose persistence failed.
func (r *Result) Failed() []Outcome {
	return r.filter(func(o Outcome) bool { return o.Failed() })
}

// Changed reports whether any applied outcome altered the document.
func (r *Result) Changed() bool {
	for _, o := range r.Outcomes {
		if o.Applied && !o.Unchanged {
			return true
		}
	}
	return false
}

func (r *Result) filter(keep func(Outcome) bool) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
