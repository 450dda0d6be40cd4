package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/erraggy/wmtools/checks"
	"github.com/erraggy/wmtools/internal/tracing"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/score"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
	"github.com/google/uuid"
)

// Store loads and saves web map documents.
type Store interface {
	Fetch(ctx context.Context, id string) (*webmap.Document, error)
	Persist(ctx context.Context, doc *webmap.Document) error
}

// LayerPersister is implemented by stores that save one layer at a time.
type LayerPersister interface {
	PersistLayer(ctx context.Context, doc *webmap.Document, node *webmap.LayerNode) error
}

// Copier is implemented by stores that can save a document as a new item.
// SaveCopy returns the ID of the copy.
type Copier interface {
	SaveCopy(ctx context.Context, doc *webmap.Document, titleSuffix string) (string, error)
}

// Mutator changes one document in the given mode.
type Mutator interface {
	Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error)
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc func(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error)

// Mutate calls f.
func (f MutatorFunc) Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error) {
	return f(doc, mode)
}

// Job pairs a web map with the mutator to run on it.
type Job struct {
	WebMapID string
	Mutator  Mutator
}

// Stages a document can fail in.
const (
	StageFetch   = "fetch"
	StageMutate  = "mutate"
	StagePersist = "persist"
)

// DocumentResult is the outcome of one job.
type DocumentResult struct {
	WebMapID string `json:"webmap_id" yaml:"webmap_id"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	// Result holds the per-layer outcomes; nil when the fetch or the mutator failed.
	Result *mutation.Result `json:"result,omitempty" yaml:"result,omitempty"`
	// Persisted is true when the store saved the document or its layers.
	Persisted bool `json:"persisted" yaml:"persisted"`
	// CopyID is the new item ID when the session saves copies.
	CopyID string `json:"copy_id,omitempty" yaml:"copy_id,omitempty"`
	// Stage is where the job failed, empty on success.
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the job or any of its outcomes failed.
func (d DocumentResult) Failed() bool {
	return d.Err != nil || (d.Result != nil && len(d.Result.Failed()) > 0)
}

func (d *DocumentResult) fail(stage string, err error) {
	d.Stage = stage
	d.Err = err
	d.Error = err.Error()
}

// BatchResult is the outcome of a batch run.
type BatchResult struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	Mode       mutation.Mode    `json:"mode" yaml:"mode"`
	Documents  []DocumentResult `json:"documents" yaml:"documents"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	// Success is true when no document failed.
	Success bool `json:"success" yaml:"success"`
}

// Failed returns the documents that failed.
func (b *BatchResult) Failed() []DocumentResult {
	var out []DocumentResult
	for _, d := range b.Documents {
		if d.Failed() {
			out = append(out, d)
		}
	}
	return out
}

// Outcomes returns every layer outcome of the batch in document order.
func (b *BatchResult) Outcomes() []mutation.Outcome {
	var out []mutation.Outcome
	for _, d := range b.Documents {
		if d.Result != nil {
			out = append(out, d.Result.Outcomes...)
		}
	}
	return out
}

// Session drives batch runs against a store.
type Session struct {
	store Store
	mode  mutation.Mode
	log   webmap.Logger
	// copySuffix makes persisting save a copy when the store is a Copier.
	copySuffix string
	now        func() time.Time
	newID      func() string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l webmap.Logger) Option {
	return func(s *Session) { s.log = webmap.OrNop(l) }
}

// WithSaveCopy saves edited documents as new items titled with suffix
// instead of overwriting them. It has no effect on stores that are not a
// [Copier].
func WithSaveCopy(suffix string) Option {
	return func(s *Session) { s.copySuffix = suffix }
}

// WithClock sets the time source for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(s *Session) { s.newID = func() string { return id } }
}

// New creates a Session over store in mode.
func New(store Store, mode mutation.Mode, opts ...Option) *Session {
	s := &Session{
		store: store,
		mode:  mode,
		log:   webmap.NopLogger{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the session's mode.
func (s *Session) Mode() mutation.Mode {
	return s.mode
}

// Run executes jobs in order. It always returns a result covering every job.
func (s *Session) Run(ctx context.Context, jobs []Job) *BatchResult {
	batch := &BatchResult{
		RunID:     s.newID(),
		Mode:      s.mode,
		StartedAt: s.now(),
		Success:   true,
	}
	ctx, span := tracing.StartSpan(ctx, "session.Run",
		tracing.AttrRunID.String(batch.RunID),
		tracing.AttrMode.String(s.mode.String()),
		tracing.AttrDocs.Int(len(jobs)))
	log := s.log.With("run", batch.RunID, "mode", s.mode.String())

	for _, job := range jobs {
		d := s.runJob(ctx, log, job)
		if d.Failed() {
			batch.Success = false
		}
		batch.Documents = append(batch.Documents, d)
	}
	batch.FinishedAt = s.now()

	var err error
	if failed := len(batch.Failed()); failed > 0 {
		err = fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	tracing.EndSpanWithError(span, err)
	log.Info("batch complete", "documents", len(jobs), "success", batch.Success)
	return batch
}

func (s *Session) runJob(ctx context.Context, log webmap.Logger, job Job) (d DocumentResult) {
	d.WebMapID = job.WebMapID
	ctx, span := tracing.StartSpan(ctx, "session.Document", tracing.AttrWebMapID.String(job.WebMapID))
	defer func() { tracing.EndSpanWithError(span, d.Err) }()
	log = log.With("webmap", job.WebMapID)

	if job.Mutator == nil {
		d.fail(StageMutate, &wmerrors.ValidationError{Field: "mutator", Message: "job has no mutator"})
		return d
	}
	doc, err := s.store.Fetch(ctx, job.WebMapID)
	if err != nil {
		log.Error("fetch failed", "error", err)
		d.fail(StageFetch, err)
		return d
	}
	d.Title = doc.Title

	res, err := job.Mutator.Mutate(doc, s.mode)
	if err != nil {
		log.Error("mutator failed", "error", err)
		d.fail(StageMutate, err)
		return d
	}
	d.Result = res
	span.SetAttributes(tracing.AttrApplied.Int(len(res.Applied())))

	if s.mode.IsDryRun() || !res.Changed() {
		return d
	}
	s.persist(ctx, log, doc, &d)
	return d
}

// persist saves the changed document or its changed layers, marking the
// affected outcomes as failed when a save fails.
func (s *Session) persist(ctx context.Context, log webmap.Logger, doc *webmap.Document, d *DocumentResult) {
	ctx, span := tracing.StartSpan(ctx, "session.Persist", tracing.AttrWebMapID.String(doc.ID))
	var spanErr error
	defer func() { tracing.EndSpanWithError(span, spanErr) }()

	res := d.Result
	if lp, ok := s.store.(LayerPersister); ok && s.copySuffix == "" {
		var layers []string
		for _, o := range res.Applied() {
			if !o.Unchanged && !slices.Contains(layers, o.LayerID) {
				layers = append(layers, o.LayerID)
			}
		}
		saved := 0
		for _, id := range layers {
			node := doc.FindByID(id)
			var err error
			if node == nil {
				err = &wmerrors.NotFoundError{Kind: "layer", ID: id}
			} else {
				err = lp.PersistLayer(ctx, doc, node)
			}
			if err != nil {
				perr := &wmerrors.PersistError{DocumentID: doc.ID, LayerID: id, Cause: err}
				log.Error("layer persist failed", "layer", id, "error", err)
				markFailed(res, id, perr)
				spanErr = perr
				continue
			}
			saved++
		}
		d.Persisted = saved > 0
		return
	}

	var err error
	if c, ok := s.store.(Copier); ok && s.copySuffix != "" {
		d.CopyID, err = c.SaveCopy(ctx, doc, s.copySuffix)
	} else {
		err = s.store.Persist(ctx, doc)
	}
	if err != nil {
		perr := &wmerrors.PersistError{DocumentID: doc.ID, Cause: err}
		log.Error("persist failed", "error", err)
		markFailed(res, "", perr)
		d.fail(StagePersist, perr)
		spanErr = perr
		return
	}
	d.Persisted = true
	log.Info("document saved", "applied", len(res.Applied()), "copy", d.CopyID)
}

// markFailed fails the applied outcomes of layerID, or of every layer when
// layerID is empty.
func markFailed(res *mutation.Result, layerID string, err error) {
	for i := range res.Outcomes {
		o := &res.Outcomes[i]
		if o.Applied && (layerID == "" || o.LayerID == layerID) {
			o.MarkFailed(err)
		}
	}
}

// Report is the analysis of one web map.
type Report struct {
	WebMapID string                 `json:"webmap_id" yaml:"webmap_id"`
	Title    string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Result   *checks.AnalysisResult `json:"result,omitempty" yaml:"result,omitempty"`
	Score    *score.Score           `json:"score,omitempty" yaml:"score,omitempty"`
	Err      error                  `json:"-" yaml:"-"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Analyze fetches and analyzes each web map in order. A failed fetch is
// recorded on its report and the remaining maps are still analyzed.
func (s *Session) Analyze(ctx context.Context, ids []string, engine *checks.Engine) []Report {
	if engine == nil {
		engine = checks.New()
	}
	ctx, span := tracing.StartSpan(ctx, "session.Analyze", tracing.AttrDocs.Int(len(ids)))
	defer span.End()

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		r := Report{WebMapID: id}
		doc, err := s.store.Fetch(ctx, id)
		if err != nil {
			s.log.Error("fetch failed", "webmap", id, "error", err)
			r.Err = err
			r.Error = err.Error()
			reports = append(reports, r)
			continue
		}
		r.Title = doc.Title
		r.Result = engine.Analyze(ctx, doc)
		if r.Result.DocumentID == "" {
			r.Result.DocumentID = id
		}
		sc := score.Calculate(r.Result)
		r.Score = &sc
		reports = append(reports, r)
	}
	return reports
}
