// Package severity provides severity level constants and utilities
// for issues reported by the check engine.
//
// The severity levels are ordered from least to most severe:
// Info < Warning < Critical
package severity

import "fmt"

// Severity indicates how strongly an issue affects a web map.
type Severity int

const (
	// SeverityInfo indicates an informational finding: a review suggestion
	// or an optional improvement.
	SeverityInfo Severity = iota

	// SeverityWarning indicates a best-practice violation that degrades
	// performance or usability but does not break the map.
	SeverityWarning

	// SeverityCritical indicates a configuration that breaks functionality,
	// such as a layer that field apps cannot query.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Parse converts a severity name back into a Severity.
func Parse(s string) (Severity, error) {
	switch s {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("severity: unknown level %q", s)
	}
}

// MarshalText renders the severity by name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
