package fieldindex

import (
	"strings"

	"github.com/erraggy/wmtools/webmap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AliasReason explains why an alias was flagged.
type AliasReason string

const (
	// AliasSameAsName means the alias equals the raw field name.
	AliasSameAsName AliasReason = "alias-same-as-name"
	// AliasCrypticName means the field name starts with a known cryptic prefix.
	AliasCrypticName AliasReason = "cryptic-field-name"
)

// AliasFinding is one field whose alias should be improved.
type AliasFinding struct {
	Field     webmap.FieldInfo
	Reason    AliasReason
	Suggested string
}

type rewrite struct {
	from string
	to   string
}

// crypticPrefixes are matched case-insensitively in order.
var crypticPrefixes = []rewrite{
	{"fld_", "Field"},
	{"col_", "Column"},
	{"attr_", "Attribute"},
	{"val_", "Value"},
	{"num_", "Number"},
	{"dt_", "Date"},
	{"tm_", "Time"},
	{"flg_", "Flag"},
	{"ind_", "Indicator"},
	{"cd_", "Code"},
	{"desc_", "Description"},
	{"nm_", "Name"},
	{"addr_", "Address"},
	{"st_", "State"},
	{"cty_", "City"},
	{"zip_", "ZIP Code"},
}

var abbreviations = []rewrite{
	{"Num", "Number"},
	{"Desc", "Description"},
	{"Addr", "Address"},
	{"St", "Street"},
	{"Rd", "Road"},
	{"Blvd", "Boulevard"},
	{"Ave", "Avenue"},
	{"Dt", "Date"},
	{"Tm", "Time"},
}

// AliasFindings returns the non-system fields whose alias equals the field
// name or whose name uses a cryptic prefix. A field with an empty alias came
// from a name-only fields list, so only its name is judged.
func (idx *Index) AliasFindings() []AliasFinding {
	var out []AliasFinding
	for _, f := range idx.fields {
		if f.IsSystem() {
			continue
		}
		switch {
		case f.Alias == f.Name:
			out = append(out, AliasFinding{Field: f, Reason: AliasSameAsName, Suggested: SuggestAlias(f.Name)})
		case crypticPrefix(f.Name) != nil:
			out = append(out, AliasFinding{Field: f, Reason: AliasCrypticName, Suggested: SuggestAlias(f.Name)})
		}
	}
	return out
}

func crypticPrefix(name string) *rewrite {
	lower := strings.ToLower(name)
	for i := range crypticPrefixes {
		if strings.HasPrefix(lower, crypticPrefixes[i].from) {
			return &crypticPrefixes[i]
		}
	}
	return nil
}

// SuggestAlias derives a human-readable alias from a field name:
//
//	fld_owner_name -> Field Owner Name
//	main_st        -> Main Street
//	project_number -> Project Number
func SuggestAlias(name string) string {
	if rule := crypticPrefix(name); rule != nil {
		rest := Humanize(name[len(rule.from):])
		if rest == "" {
			return rule.to
		}
		return rule.to + " " + rest
	}

	suggested := Humanize(name)
	for _, a := range abbreviations {
		suggested = strings.ReplaceAll(suggested, " "+a.from+" ", " "+a.to+" ")
		if strings.HasSuffix(suggested, " "+a.from) {
			suggested = strings.TrimSuffix(suggested, a.from) + a.to
		}
	}
	return suggested
}

// Humanize turns a snake_case identifier into title-cased words:
// "project_number" becomes "Project Number".
func Humanize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
