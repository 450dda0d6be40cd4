package forms

import (
	"strings"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/webmap"
	"github.com/google/uuid"
)

// ExpressionTitle derives a display title from the last segment of an
// expression name: "expr/set-project-number" becomes "Set Project Number".
func ExpressionTitle(name string) string {
	segment := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		segment = name[i+1:]
	}
	return fieldindex.Humanize(strings.ReplaceAll(segment, "-", "_"))
}

// placeholderValue returns a short random value for an expression created
// without one.
func placeholderValue() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// addValueExpression adds a string-returning constant expression unless one
// with the same name exists. It reports whether the document changed.
func addValueExpression(doc *webmap.Document, name, value string) bool {
	if doc.HasExpressionInfo(name) {
		return false
	}
	if value == "" {
		value = placeholderValue()
	}
	return doc.AddExpressionInfo(webmap.ExpressionInfo{
		Name:       name,
		Title:      ExpressionTitle(name),
		Expression: `"` + value + `"`,
		ReturnType: "string",
	})
}

// ensureReferenced makes sure every expression name exists in doc. System
// expressions are added with their standard definitions; any other missing
// name gets a placeholder. It returns the names it added.
func ensureReferenced(doc *webmap.Document, names []string) []string {
	var added []string
	for _, name := range names {
		switch name {
		case "":
			continue
		case webmap.ExprSystemTrue, webmap.ExprSystemFalse:
			for _, sys := range webmap.SystemExpressions() {
				if sys.Name == name && doc.AddExpressionInfo(sys) {
					added = append(added, name)
				}
			}
		default:
			if addValueExpression(doc, name, "") {
				added = append(added, name)
			}
		}
	}
	return added
}
