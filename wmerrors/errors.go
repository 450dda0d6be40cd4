package wmerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrParse indicates a web map document could not be decoded.
	ErrParse = errors.New("parse error")

	// ErrStructure indicates a malformed layer tree.
	ErrStructure = errors.New("structural error")

	// ErrCycle indicates a layer would become its own descendant.
	ErrCycle = errors.New("layer cycle")

	// ErrNotFound indicates a web map or layer lookup failed.
	ErrNotFound = errors.New("not found")

	// ErrPersist indicates a write to the document store failed.
	ErrPersist = errors.New("persist error")

	// ErrValidation indicates invalid mutation inputs.
	ErrValidation = errors.New("validation error")

	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("configuration error")
)

// ParseError represents a failure to decode a web map document.
type ParseError struct {
	// Path is the file path or source identifier
	Path string
	// Message describes the parsing failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// StructuralError represents a layer tree that is not a tree: a node inserted
// beneath itself or one of its descendants, or a node with two parents.
type StructuralError struct {
	// LayerID is the ID of the offending layer
	LayerID string
	// ParentID is the ID of the intended parent, if any
	ParentID string
	// IsCycle is true when the insertion would create a cycle
	IsCycle bool
	// IsDuplicate is true when the node already has a parent
	IsDuplicate bool
	// Message provides additional context
	Message string
}

// Error returns a human-readable error message.
func (e *StructuralError) Error() string {
	msg := "structural error"
	switch {
	case e.IsCycle:
		msg = "layer cycle"
	case e.IsDuplicate:
		msg = "duplicate layer"
	}
	if e.LayerID != "" {
		msg += ": " + e.LayerID
	}
	if e.ParentID != "" {
		msg += " under " + e.ParentID
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns nil as StructuralError has no underlying cause.
func (e *StructuralError) Unwrap() error {
	return nil
}

// Is reports whether target matches this error type.
// Matches ErrStructure, and also ErrCycle when IsCycle is set.
func (e *StructuralError) Is(target error) bool {
	if target == ErrStructure {
		return true
	}
	return target == ErrCycle && e.IsCycle
}

// NotFoundError represents a missing web map, layer or form.
type NotFoundError struct {
	// Kind names what was looked up: "webmap", "layer", "form"
	Kind string
	// ID is the identifier or title that was not found
	ID string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "item"
	}
	msg := kind + " not found"
	if e.ID != "" {
		msg += fmt.Sprintf(": %q", e.ID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistError represents a failed write to the document store.
type PersistError struct {
	// DocumentID is the web map that failed to save
	DocumentID string
	// LayerID is set when the store persists layers individually
	LayerID string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *PersistError) Error() string {
	msg := "persist error"
	if e.DocumentID != "" {
		msg += " for " + e.DocumentID
	}
	if e.LayerID != "" {
		msg += " layer " + e.LayerID
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *PersistError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}

// ValidationError represents invalid inputs to a mutation.
type ValidationError struct {
	// Field is the input that failed validation
	Field string
	// Value is the problematic value (may be nil)
	Value any
	// Message describes the validation failure
	Message string
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Field != "" {
		msg += " for " + e.Field
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns nil as ValidationError has no underlying cause.
func (e *ValidationError) Unwrap() error {
	return nil
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigError represents an invalid configuration or input.
type ConfigError struct {
	// Option is the name of the problematic configuration option
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
