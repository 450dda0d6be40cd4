package filter

import (
	"fmt"

	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/webmap"
)

// PatchResult contains the results of a patch operation.
type PatchResult struct {
	// Document is the patched document. With WithDocument it is a copy;
	// the input document is not changed.
	Document *webmap.Document
	// Result holds the per-layer outcomes.
	*mutation.Result
}

// Option is a function that configures a patch operation.
type Option func(*patchConfig) error

type patchConfig struct {
	// Input source (exactly one must be set)
	filePath *string
	document *webmap.Document

	field      string
	expression string
	mode       mutation.Mode
	logger     webmap.Logger
}

// WithFilePath reads the web map to patch from a file.
func WithFilePath(path string) Option {
	return func(cfg *patchConfig) error {
		if path == "" {
			return fmt.Errorf("file path cannot be empty")
		}
		cfg.filePath = &path
		return nil
	}
}

// WithDocument patches a copy of an already-parsed document.
func WithDocument(doc *webmap.Document) Option {
	return func(cfg *patchConfig) error {
		if doc == nil {
			return fmt.Errorf("document cannot be nil")
		}
		cfg.document = doc
		return nil
	}
}

// WithField sets the target field.
func WithField(field string) Option {
	return func(cfg *patchConfig) error {
		cfg.field = field
		return nil
	}
}

// WithExpression sets the definition expression to write.
func WithExpression(expr string) Option {
	return func(cfg *patchConfig) error {
		cfg.expression = expr
		return nil
	}
}

// WithMode sets the mode. The default is mutation.DryRun.
func WithMode(mode mutation.Mode) Option {
	return func(cfg *patchConfig) error {
		cfg.mode = mode
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l webmap.Logger) Option {
	return func(cfg *patchConfig) error {
		cfg.logger = l
		return nil
	}
}

// PatchWithOptions patches a web map using functional options.
//
// Example:
//
//	res, err := filter.PatchWithOptions(
//	    filter.WithFilePath("webmap.json"),
//	    filter.WithField("project_number"),
//	    filter.WithExpression("project_number = '123456'"),
//	)
func PatchWithOptions(opts ...Option) (*PatchResult, error) {
	cfg := &patchConfig{mode: mutation.DryRun}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("filter: invalid options: %w", err)
		}
	}

	var doc *webmap.Document
	switch {
	case cfg.filePath != nil && cfg.document != nil:
		return nil, fmt.Errorf("filter: invalid options: multiple input sources specified: use only one of WithFilePath or WithDocument")
	case cfg.filePath != nil:
		parsed, err := webmap.ParseWithOptions(webmap.WithFilePath(*cfg.filePath), webmap.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		doc = parsed
	case cfg.document != nil:
		doc = cfg.document.DeepCopy()
	default:
		return nil, fmt.Errorf("filter: invalid options: no input source specified: use WithFilePath or WithDocument")
	}

	p := &Patcher{
		TargetField: cfg.field,
		Expression:  cfg.expression,
		Mode:        cfg.mode,
		Logger:      cfg.logger,
	}
	result, err := p.Patch(doc)
	if err != nil {
		return nil, err
	}
	return &PatchResult{Document: doc, Result: result}, nil
}
