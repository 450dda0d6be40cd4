package checks

import (
	"time"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/internal/severity"
	"github.com/erraggy/wmtools/webmap"
)

// Issue is a single finding.
type Issue = issues.Issue

// Category identifies the check that produced an issue.
type Category = issues.Category

// Severity indicates how strongly an issue affects the web map.
type Severity = severity.Severity

const (
	// SeverityInfo marks review suggestions and optional improvements
	SeverityInfo = severity.SeverityInfo
	// SeverityWarning marks best-practice violations
	SeverityWarning = severity.SeverityWarning
	// SeverityCritical marks configurations that break field apps
	SeverityCritical = severity.SeverityCritical
)

// Defaults and fixed limits.
const (
	DefaultRecordCountThreshold = 10000
	DefaultLayerCountThreshold  = 15

	// MaxLayerAge is how old a layer may get before it is flagged for review.
	MaxLayerAge = 730 * 24 * time.Hour
	// MaxPopupFields is the visible popup field count past which popups are flagged.
	MaxPopupFields = 15
	// BroadScaleRatio is the minScale/maxScale ratio past which a visibility
	// range counts as very broad.
	BroadScaleRatio = 1000

	mediumImpactRecords = 5000
	highImpactRecords   = 10000
)

// Thresholds are the configurable limits checks compare against.
type Thresholds struct {
	// RecordCount is the record count above which a layer is reported.
	RecordCount int `json:"record_count" yaml:"record_count"`
	// LayerCount is the layer and table count above which the map is reported.
	LayerCount int `json:"layer_count" yaml:"layer_count"`
	// AsOf is the reference time for age checks. Zero means now.
	AsOf time.Time `json:"as_of,omitzero" yaml:"as_of,omitempty"`
}

// DefaultThresholds returns the default limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RecordCount: DefaultRecordCountThreshold,
		LayerCount:  DefaultLayerCountThreshold,
	}
}

func (t Thresholds) now() time.Time {
	if t.AsOf.IsZero() {
		return time.Now()
	}
	return t.AsOf
}

// Target is the layer a check inspects.
type Target struct {
	Node   *webmap.LayerNode
	Fields *fieldindex.Index
	// Path is the JSON path of the node in the document.
	Path string
}

// issue starts an issue located at the target.
func (t Target) issue(category Category, sev Severity, message, recommendation string) Issue {
	return Issue{
		Category:       category,
		Severity:       sev,
		LayerID:        t.Node.ID,
		LayerTitle:     t.Node.Title,
		Path:           t.Path,
		Message:        message,
		Recommendation: recommendation,
	}
}

// Check is a layer-level check. Run must not modify the target.
type Check struct {
	Category Category
	Run      func(t Target, th Thresholds) []Issue
}

// DocumentCheck runs once per web map.
type DocumentCheck struct {
	Category Category
	Run      func(doc *webmap.Document, th Thresholds) []Issue
}

// DefaultChecks returns the built-in layer checks.
func DefaultChecks() []Check {
	return []Check{
		{Category: issues.CategoryRecordCount, Run: RecordCount},
		{Category: issues.CategoryLayerAge, Run: LayerAge},
		{Category: issues.CategoryReservedName, Run: ReservedNames},
		{Category: issues.CategoryFieldAlias, Run: FieldAliases},
		{Category: issues.CategoryDrawing, Run: DrawingOptimization},
		{Category: issues.CategoryQuery, Run: QueryCapability},
		{Category: issues.CategoryEditing, Run: EditingCapability},
		{Category: issues.CategoryVisibility, Run: VisibilityRange},
		{Category: issues.CategoryPopup, Run: PopupConfiguration},
	}
}

// DefaultDocumentChecks returns the built-in document checks.
func DefaultDocumentChecks() []DocumentCheck {
	return []DocumentCheck{
		{Category: issues.CategoryLayerCount, Run: LayerCount},
	}
}
