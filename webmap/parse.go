package webmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/erraggy/wmtools/wmerrors"
	"go.yaml.in/yaml/v4"
)

// Option is a function that configures a parse operation
type Option func(*parseConfig) error

type parseConfig struct {
	// Input source (exactly one must be set)
	filePath *string
	reader   io.Reader
	data     []byte

	documentID string
	title      string
	metadata   map[string]LayerMetadata
	logger     Logger
}

// WithFilePath reads the document from a JSON or YAML file.
func WithFilePath(path string) Option {
	return func(cfg *parseConfig) error {
		if path == "" {
			return fmt.Errorf("file path cannot be empty")
		}
		cfg.filePath = &path
		return nil
	}
}

// WithReader reads the document from r.
func WithReader(r io.Reader) Option {
	return func(cfg *parseConfig) error {
		if r == nil {
			return fmt.Errorf("reader cannot be nil")
		}
		cfg.reader = r
		return nil
	}
}

// WithBytes parses an in-memory document.
func WithBytes(data []byte) Option {
	return func(cfg *parseConfig) error {
		cfg.data = data
		return nil
	}
}

// WithDocumentID sets the document ID. For file input it defaults to the file
// name without extension.
func WithDocumentID(id string) Option {
	return func(cfg *parseConfig) error {
		cfg.documentID = id
		return nil
	}
}

// WithTitle sets the portal item title.
func WithTitle(title string) Option {
	return func(cfg *parseConfig) error {
		cfg.title = title
		return nil
	}
}

// WithMetadata attaches per-layer item and service metadata, keyed by layer ID.
func WithMetadata(meta map[string]LayerMetadata) Option {
	return func(cfg *parseConfig) error {
		cfg.metadata = meta
		return nil
	}
}

// WithLogger sets the logger for tree-building warnings.
func WithLogger(l Logger) Option {
	return func(cfg *parseConfig) error {
		cfg.logger = l
		return nil
	}
}

// ParseWithOptions parses a web map document using functional options.
//
// Example:
//
//	doc, err := webmap.ParseWithOptions(
//	    webmap.WithFilePath("webmap.json"),
//	    webmap.WithMetadata(meta),
//	)
func ParseWithOptions(opts ...Option) (*Document, error) {
	cfg := &parseConfig{logger: NopLogger{}}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("webmap: invalid options: %w", err)
		}
	}

	sources := 0
	for _, set := range []bool{cfg.filePath != nil, cfg.reader != nil, cfg.data != nil} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return nil, &wmerrors.ConfigError{Message: "no input source specified: use WithFilePath, WithReader or WithBytes"}
	}
	if sources > 1 {
		return nil, &wmerrors.ConfigError{Message: "multiple input sources specified: use only one"}
	}
	cfg.logger = OrNop(cfg.logger)

	sourcePath := ""
	data := cfg.data
	switch {
	case cfg.filePath != nil:
		sourcePath = *cfg.filePath
		b, err := os.ReadFile(sourcePath)
		if err != nil {
			return nil, &wmerrors.ParseError{Path: sourcePath, Message: "reading file", Cause: err}
		}
		data = b
		if cfg.documentID == "" {
			base := filepath.Base(sourcePath)
			cfg.documentID = strings.TrimSuffix(base, filepath.Ext(base))
		}
	case cfg.reader != nil:
		b, err := io.ReadAll(cfg.reader)
		if err != nil {
			return nil, &wmerrors.ParseError{Message: "reading input", Cause: err}
		}
		data = b
	}

	raw, format, err := decode(data)
	if err != nil {
		return nil, &wmerrors.ParseError{Path: sourcePath, Message: "decoding document", Cause: err}
	}

	doc := build(raw, cfg.metadata, cfg.logger)
	doc.ID = cfg.documentID
	doc.Title = cfg.title
	doc.SourcePath = sourcePath
	doc.SourceFormat = format
	cfg.logger.Debug("parsed web map",
		"id", doc.ID,
		"layers", len(doc.Layers),
		"tables", len(doc.Tables),
		"warnings", len(doc.Warnings))
	return doc, nil
}

// FromMap builds a document from already-decoded JSON. The map is owned by
// the returned document afterwards.
func FromMap(raw map[string]any, opts ...Option) (*Document, error) {
	cfg := &parseConfig{logger: NopLogger{}}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("webmap: invalid options: %w", err)
		}
	}
	if raw == nil {
		return nil, &wmerrors.ParseError{Message: "nil document"}
	}
	doc := build(raw, cfg.metadata, OrNop(cfg.logger))
	doc.ID = cfg.documentID
	doc.Title = cfg.title
	doc.SourceFormat = SourceFormatJSON
	return doc, nil
}

// decode accepts a JSON object or a YAML mapping.
func decode(data []byte) (map[string]any, SourceFormat, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, "", fmt.Errorf("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, "", err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("top-level value must be an object, got %T", v)
		}
		return m, SourceFormatJSON, nil
	}
	var v any
	if err := yaml.Unmarshal(trimmed, &v); err != nil {
		return nil, "", err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("top-level value must be a mapping, got %T", v)
	}
	return m, SourceFormatYAML, nil
}
