package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/erraggy/wmtools/internal/fileutil"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
)

// metaSuffix names the side file holding item title and layer metadata.
const metaSuffix = ".meta.json"

// extensions are tried in order when looking up a document.
var extensions = []string{".json", ".yaml", ".yml"}

// sideFile is the content of <id>.meta.json.
type sideFile struct {
	Title  string                          `json:"title,omitempty"`
	Layers map[string]webmap.LayerMetadata `json:"layers,omitempty"`
}

// FileStore keeps web maps as files in a directory.
type FileStore struct {
	Dir    string
	Logger webmap.Logger
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, logger webmap.Logger) *FileStore {
	return &FileStore{Dir: dir, Logger: webmap.OrNop(logger)}
}

// Fetch reads <id>.json, <id>.yaml or <id>.yml and merges the side file when
// present.
func (s *FileStore) Fetch(ctx context.Context, id string) (*webmap.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	path, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	side, err := s.readSideFile(id)
	if err != nil {
		return nil, err
	}

	opts := []webmap.Option{
		webmap.WithFilePath(path),
		webmap.WithDocumentID(id),
		webmap.WithLogger(s.logger()),
	}
	if side.Title != "" {
		opts = append(opts, webmap.WithTitle(side.Title))
	}
	if len(side.Layers) > 0 {
		opts = append(opts, webmap.WithMetadata(side.Layers))
	}
	return webmap.ParseWithOptions(opts...)
}

// Persist overwrites the document's file in the format it was read in.
func (s *FileStore) Persist(ctx context.Context, doc *webmap.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return &wmerrors.ValidationError{Field: "doc", Message: "document is nil"}
	}
	if err := validateID(doc.ID); err != nil {
		return err
	}
	if err := s.write(doc, doc.ID); err != nil {
		return &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
	}
	s.logger().Debug("persisted web map", "id", doc.ID, "dir", s.Dir)
	return nil
}

// SaveCopy writes the document as <id><suffix> and records the suffixed title
// in the copy's side file. Layer metadata of the original is carried over.
func (s *FileStore) SaveCopy(ctx context.Context, doc *webmap.Document, titleSuffix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc == nil {
		return "", &wmerrors.ValidationError{Field: "doc", Message: "document is nil"}
	}
	if titleSuffix == "" {
		return "", &wmerrors.ValidationError{Field: "titleSuffix", Message: "suffix must not be empty"}
	}
	copyID := doc.ID + titleSuffix
	if err := validateID(copyID); err != nil {
		return "", err
	}

	side, err := s.readSideFile(doc.ID)
	if err != nil {
		return "", &wmerrors.PersistError{DocumentID: copyID, Cause: err}
	}
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	side.Title = title + titleSuffix

	if err := s.write(doc, copyID); err != nil {
		return "", &wmerrors.PersistError{DocumentID: copyID, Cause: err}
	}
	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return "", &wmerrors.PersistError{DocumentID: copyID, Cause: err}
	}
	if err := fileutil.WriteAtomic(filepath.Join(s.Dir, copyID+metaSuffix), data, fileutil.OwnerReadWrite); err != nil {
		return "", &wmerrors.PersistError{DocumentID: copyID, Cause: err}
	}
	s.logger().Info("saved web map copy", "id", doc.ID, "copy_id", copyID, "title", side.Title)
	return copyID, nil
}

// List returns the IDs of the documents in the directory, sorted by name.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("portal: listing %s: %w", s.Dir, err)
	}
	var ids []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		ext := filepath.Ext(name)
		for _, known := range extensions {
			if ext != known {
				continue
			}
			id := strings.TrimSuffix(name, ext)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *FileStore) logger() webmap.Logger {
	return webmap.OrNop(s.Logger)
}

func (s *FileStore) locate(id string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.Dir, id+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", &wmerrors.ParseError{Path: path, Message: "reading file", Cause: err}
		}
	}
	return "", &wmerrors.NotFoundError{Kind: "webmap", ID: id}
}

func (s *FileStore) readSideFile(id string) (sideFile, error) {
	var side sideFile
	path := filepath.Join(s.Dir, id+metaSuffix)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return side, nil
	}
	if err != nil {
		return side, &wmerrors.ParseError{Path: path, Message: "reading metadata", Cause: err}
	}
	if err := json.Unmarshal(data, &side); err != nil {
		return side, &wmerrors.ParseError{Path: path, Message: "decoding metadata", Cause: err}
	}
	return side, nil
}

func (s *FileStore) write(doc *webmap.Document, id string) error {
	format := doc.SourceFormat
	ext := ".json"
	if format == webmap.SourceFormatYAML {
		ext = ".yaml"
		if doc.SourcePath != "" && filepath.Ext(doc.SourcePath) == ".yml" {
			ext = ".yml"
		}
	} else {
		format = webmap.SourceFormatJSON
	}
	data, err := doc.Marshal(format)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(s.Dir, id+ext), data, fileutil.OwnerReadWrite)
}

// validateID rejects IDs that would escape the store directory.
func validateID(id string) error {
	if id == "" {
		return &wmerrors.ValidationError{Field: "id", Message: "web map id must not be empty"}
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return &wmerrors.ValidationError{Field: "id", Value: id, Message: "web map id must be a plain file name"}
	}
	return nil
}
