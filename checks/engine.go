package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/internal/tracing"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/webmap"
)

// Engine runs checks over web maps. An Engine is not modified by Analyze and
// may be reused across documents.
type Engine struct {
	Thresholds     Thresholds
	Checks         []Check
	DocumentChecks []DocumentCheck
	// DepthWarning is the nesting depth reported as a structural issue.
	DepthWarning int
	Logger       webmap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// New creates an Engine with the default checks and thresholds.
func New(opts ...Option) *Engine {
	e := &Engine{
		Thresholds:     DefaultThresholds(),
		Checks:         DefaultChecks(),
		DocumentChecks: DefaultDocumentChecks(),
		DepthWarning:   walker.DefaultDepthWarning,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRecordCountThreshold sets the record count reporting threshold.
func WithRecordCountThreshold(n int) Option {
	return func(e *Engine) { e.Thresholds.RecordCount = n }
}

// WithLayerCountThreshold sets the layer count reporting threshold.
func WithLayerCountThreshold(n int) Option {
	return func(e *Engine) { e.Thresholds.LayerCount = n }
}

// WithAsOf sets the reference time for age checks.
func WithAsOf(t time.Time) Option {
	return func(e *Engine) { e.Thresholds.AsOf = t }
}

// WithChecks replaces the layer checks.
func WithChecks(checks ...Check) Option {
	return func(e *Engine) { e.Checks = checks }
}

// WithDocumentChecks replaces the document checks.
func WithDocumentChecks(checks ...DocumentCheck) Option {
	return func(e *Engine) { e.DocumentChecks = checks }
}

// WithDepthWarning sets the nesting depth reported as a structural issue.
func WithDepthWarning(depth int) Option {
	return func(e *Engine) { e.DepthWarning = depth }
}

// WithLogger sets the logger.
func WithLogger(l webmap.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// Analyze runs every check over doc. Layer checks run on feature layers and
// tables only. A nil document yields an empty result.
func (e *Engine) Analyze(ctx context.Context, doc *webmap.Document) *AnalysisResult {
	result := &AnalysisResult{
		Thresholds: e.Thresholds,
		AnalyzedAt: e.Thresholds.now(),
	}
	if doc == nil {
		return result
	}
	result.DocumentID = doc.ID
	result.Title = doc.Title
	result.Stats = doc.Stats()

	ctx, span := tracing.StartSpan(ctx, "checks.Analyze", tracing.AttrWebMapID.String(doc.ID))
	log := webmap.OrNop(e.Logger).With("webmap", doc.ID)

	cache := fieldindex.NewCache()
	err := walker.WalkDocument(doc,
		walker.WithUserContext(ctx),
		walker.WithDepthWarning(e.DepthWarning),
		walker.WithLayerHandler(func(wc *walker.WalkContext, node *webmap.LayerNode) walker.Action {
			if !node.IsQueryable() {
				return walker.Continue
			}
			target := Target{Node: node, Fields: cache.For(node), Path: wc.JSONPath}
			for _, c := range e.Checks {
				found := c.Run(target, e.Thresholds)
				if len(found) > 0 {
					log.Debug("check reported issues", "layer", node.ID, "category", c.Category, "count", len(found))
				}
				result.Issues = append(result.Issues, found...)
			}
			return walker.Continue
		}),
		walker.WithStructuralHandler(func(reason string, node *webmap.LayerNode, path string) {
			result.Issues = append(result.Issues, structuralIssue(reason, node, path, e.DepthWarning))
		}),
	)
	if err != nil {
		log.Error("layer walk failed", "error", err)
	}
	for _, c := range e.DocumentChecks {
		result.Issues = append(result.Issues, c.Run(doc, e.Thresholds)...)
	}

	result.finalize()
	span.SetAttributes(tracing.AttrIssues.Int(len(result.Issues)))
	tracing.EndSpanWithError(span, err)
	log.Info("analysis complete",
		"issues", len(result.Issues),
		"critical", result.CriticalCount,
		"warnings", result.WarningCount)
	return result
}

func structuralIssue(reason string, node *webmap.LayerNode, path string, depth int) Issue {
	i := Issue{
		Category:   issues.CategoryStructural,
		Severity:   SeverityWarning,
		LayerID:    node.ID,
		LayerTitle: node.Title,
		Path:       path,
	}
	switch reason {
	case walker.ReasonCycle:
		i.Message = "layer is referenced more than once in the layer tree"
		i.Recommendation = "Remove the duplicate reference"
	default:
		i.Message = fmt.Sprintf("layer is nested more than %d levels deep", depth)
		i.Recommendation = "Flatten the group layer hierarchy"
	}
	return i
}
