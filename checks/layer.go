package checks

import (
	"fmt"
	"strings"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/webmap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Impact classifies a layer's record count.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// RecordImpact classifies n records: below 5,000 is low, up to 10,000 is
// medium and anything above is high.
func RecordImpact(n int) Impact {
	switch {
	case n > highImpactRecords:
		return ImpactHigh
	case n >= mediumImpactRecords:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func (i Impact) severity() Severity {
	switch i {
	case ImpactHigh:
		return SeverityCritical
	case ImpactMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// RecordCount reports layers whose record count exceeds th.RecordCount. The
// severity follows the record count impact band.
func RecordCount(t Target, th Thresholds) []Issue {
	svc := t.Node.Service
	if svc == nil || svc.RecordCount == nil || *svc.RecordCount <= th.RecordCount {
		return nil
	}
	n := *svc.RecordCount
	impact := RecordImpact(n)
	return []Issue{t.issue(issues.CategoryRecordCount, impact.severity(),
		printer.Sprintf("layer has %d records (%s impact)", n, impact),
		"Consider scale-dependent rendering or a summary layer for better performance")}
}

// LayerAge reports layers created more than two years before th.AsOf.
func LayerAge(t Target, th Thresholds) []Issue {
	created := t.Node.CreatedDate
	if created == nil {
		return nil
	}
	age := th.now().Sub(*created)
	if age <= MaxLayerAge {
		return nil
	}
	years := age.Hours() / 24 / 365.25
	return []Issue{t.issue(issues.CategoryLayerAge, SeverityInfo,
		fmt.Sprintf("layer was created %s, %.1f years ago", created.Format("2006-01-02"), years),
		"Review whether this layer is still needed or should be updated")}
}

// ReservedNames reports one issue per field whose name is a reserved word.
func ReservedNames(t Target, _ Thresholds) []Issue {
	var out []Issue
	for _, f := range t.Fields.ReservedNameViolations() {
		i := t.issue(issues.CategoryReservedName, SeverityWarning,
			fmt.Sprintf("field name %q is a reserved word", f.Name),
			"Rename the field during the next schema update to avoid query conflicts")
		i.Field = f.Name
		out = append(out, i)
	}
	return out
}

// FieldAliases reports fields whose alias should be improved, with a
// suggested alias.
func FieldAliases(t Target, _ Thresholds) []Issue {
	var out []Issue
	for _, finding := range t.Fields.AliasFindings() {
		var msg string
		switch finding.Reason {
		case fieldindex.AliasCrypticName:
			msg = fmt.Sprintf("field %q has a cryptic name", finding.Field.Name)
		default:
			msg = fmt.Sprintf("field %q has no descriptive alias", finding.Field.Name)
		}
		i := t.issue(issues.CategoryFieldAlias, SeverityInfo, msg,
			"Add a meaningful alias to improve readability")
		i.Field = finding.Field.Name
		i.Suggestion = finding.Suggested
		out = append(out, i)
	}
	return out
}

// DrawingOptimization reports layers lacking statistics, order-by or
// pagination support, and layers with tile caching disabled.
func DrawingOptimization(t Target, _ Thresholds) []Issue {
	svc := t.Node.Service
	if svc == nil {
		return nil
	}
	var out []Issue
	if !svc.SupportsStatistics || !svc.SupportsOrderBy || !svc.SupportsPagination {
		out = append(out, t.issue(issues.CategoryDrawing, SeverityInfo,
			"drawing optimization is not enabled",
			"Enable advanced query capabilities (statistics, order by, pagination) on the service"))
	}
	if svc.TileMaxRecordCount != nil && *svc.TileMaxRecordCount == 0 {
		out = append(out, t.issue(issues.CategoryDrawing, SeverityInfo,
			"tile caching is disabled",
			"Enable tile caching for better performance at multiple scales"))
	}
	return out
}

// QueryCapability reports layers whose service does not allow queries.
func QueryCapability(t Target, _ Thresholds) []Issue {
	svc := t.Node.Service
	if svc == nil || svc.HasCapability("Query") {
		return nil
	}
	return []Issue{t.issue(issues.CategoryQuery, SeverityCritical,
		"layer does not support query",
		"Enable the Query capability for field app compatibility")}
}

var collectionKeywords = []string{"collection", "survey", "inspection", "edit", "input", "form", "entry"}

// EditingCapability reports layers whose title suggests data collection but
// whose service has no editing capability.
func EditingCapability(t Target, _ Thresholds) []Issue {
	svc := t.Node.Service
	if svc == nil {
		return nil
	}
	if svc.HasCapability("Editing") || svc.HasCapability("Create") || svc.HasCapability("Update") {
		return nil
	}
	title := strings.ToLower(t.Node.Title)
	for _, kw := range collectionKeywords {
		if strings.Contains(title, kw) {
			return []Issue{t.issue(issues.CategoryEditing, SeverityWarning,
				"layer title suggests data collection but editing is disabled",
				"Enable Create or Update on the service, or rename the layer")}
		}
	}
	return nil
}

// VisibilityRange reports layers without scale limits and layers whose range
// is very broad. Tables have no scale range and are not checked.
func VisibilityRange(t Target, _ Thresholds) []Issue {
	n := t.Node
	if n.Kind == webmap.KindTable {
		return nil
	}
	switch {
	case n.MinScale == 0 && n.MaxScale == 0:
		return []Issue{t.issue(issues.CategoryVisibility, SeverityInfo,
			"layer has no visibility scale limits",
			"Set scale limits to improve performance at different zoom levels")}
	case n.MinScale > 0 && n.MaxScale > 0 && n.MinScale/n.MaxScale > BroadScaleRatio:
		return []Issue{t.issue(issues.CategoryVisibility, SeverityWarning,
			fmt.Sprintf("visibility range 1:%.0f to 1:%.0f is very broad", n.MinScale, n.MaxScale),
			"Narrow the visibility range or split the layer by scale")}
	}
	return nil
}

// PopupConfiguration reports missing popups, popups without a title or
// fields, and popups showing too many fields.
func PopupConfiguration(t Target, _ Thresholds) []Issue {
	p := t.Node.Popup
	if p == nil {
		return []Issue{t.issue(issues.CategoryPopup, SeverityWarning,
			"no popup configured",
			"Configure a popup so users can see attribute information")}
	}
	var out []Issue
	if p.Title == "" {
		out = append(out, t.issue(issues.CategoryPopup, SeverityInfo,
			"popup has no title",
			"Add a popup title that identifies the feature"))
	}
	if len(p.FieldInfos) == 0 {
		out = append(out, t.issue(issues.CategoryPopup, SeverityInfo,
			"popup has no fields configured",
			"Choose the fields the popup should show"))
	} else if visible := p.VisibleFieldCount(); visible > MaxPopupFields {
		out = append(out, t.issue(issues.CategoryPopup, SeverityWarning,
			fmt.Sprintf("popup shows %d fields", visible),
			fmt.Sprintf("Limit the popup to at most %d fields", MaxPopupFields)))
	}
	return out
}

// LayerCount reports a web map whose layers and tables, nested ones
// included, exceed th.LayerCount. Group layers are not counted.
func LayerCount(doc *webmap.Document, th Thresholds) []Issue {
	st := doc.Stats()
	total := st.LayerCount + st.TableCount
	if total <= th.LayerCount {
		return nil
	}
	return []Issue{{
		Category:       issues.CategoryLayerCount,
		Severity:       SeverityWarning,
		Message:        fmt.Sprintf("web map has %d layers and tables (threshold %d)", total, th.LayerCount),
		Recommendation: "Consolidate similar data or split the map into focused web maps",
	}}
}
