package webmap

import (
	"fmt"
	"strings"
)

// FieldType is the canonical type of a layer field.
type FieldType int

const (
	// FieldTypeOther covers geometry, blob, raster, GUID, XML and unknown types.
	FieldTypeOther FieldType = iota
	// FieldTypeString is a text field.
	FieldTypeString
	// FieldTypeInteger covers small, regular and big integers.
	FieldTypeInteger
	// FieldTypeDouble covers single and double precision floats.
	FieldTypeDouble
	// FieldTypeDate covers date, date-only, time-only and timestamp-offset fields.
	FieldTypeDate
	// FieldTypeOID is the object ID field.
	FieldTypeOID
	// FieldTypeGlobalID is the global ID field.
	FieldTypeGlobalID
)

// String returns the short name of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldTypeString:
		return "string"
	case FieldTypeInteger:
		return "integer"
	case FieldTypeDouble:
		return "double"
	case FieldTypeDate:
		return "date"
	case FieldTypeOID:
		return "oid"
	case FieldTypeGlobalID:
		return "globalid"
	default:
		return "other"
	}
}

// MarshalText encodes the field type by its short name.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts both short names and portal type names.
func (t *FieldType) UnmarshalText(text []byte) error {
	*t = ParseFieldType(string(text))
	return nil
}

// ParseFieldType maps a portal type name ("esriFieldTypeString") or a short
// name ("string") to a FieldType. Unknown names map to FieldTypeOther.
func ParseFieldType(s string) FieldType {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "esriFieldType"))
	switch name {
	case "string", "text":
		return FieldTypeString
	case "integer", "smallinteger", "biginteger", "int", "long", "short":
		return FieldTypeInteger
	case "double", "single", "float":
		return FieldTypeDouble
	case "date", "dateonly", "timeonly", "timestampoffset":
		return FieldTypeDate
	case "oid", "objectid":
		return FieldTypeOID
	case "globalid":
		return FieldTypeGlobalID
	default:
		return FieldTypeOther
	}
}

// FieldInfo describes one field of a layer or table.
type FieldInfo struct {
	// Name is case-preserving; comparisons against reserved words are case-insensitive
	Name string `json:"name" yaml:"name"`
	// Alias is the display name; defaults to Name for field objects without
	// one and stays empty for name-only entries, whose alias is unknown
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
	// Type is the canonical field type
	Type FieldType `json:"type" yaml:"type"`
}

// IsSystem reports whether the field is maintained by the platform
// (object ID, global ID, or shape geometry columns).
func (f FieldInfo) IsSystem() bool {
	if f.Type == FieldTypeOID || f.Type == FieldTypeGlobalID {
		return true
	}
	switch strings.ToUpper(f.Name) {
	case "OBJECTID", "FID", "GLOBALID", "SHAPE", "SHAPE_LENGTH", "SHAPE_AREA",
		"SHAPE__LENGTH", "SHAPE__AREA":
		return true
	}
	return false
}

// normalizeFields converts either representation of a fields array into
// canonical FieldInfo values:
//
//	["name", "status"]
//	[{"name": "name", "type": "esriFieldTypeString", "alias": "Name"}]
//
// Mixed arrays are accepted. Entries without a usable name are dropped and
// reported through the returned warnings.
func normalizeFields(raw any) ([]FieldInfo, []string) {
	items, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	fields := make([]FieldInfo, 0, len(items))
	var warnings []string
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if v == "" {
				warnings = append(warnings, fmt.Sprintf("fields[%d]: empty field name", i))
				continue
			}
			fields = append(fields, FieldInfo{Name: v})
		case map[string]any:
			name := stringValue(v, "name")
			if name == "" {
				warnings = append(warnings, fmt.Sprintf("fields[%d]: field object without name", i))
				continue
			}
			alias := stringValue(v, "alias")
			if alias == "" {
				alias = name
			}
			fields = append(fields, FieldInfo{
				Name:  name,
				Alias: alias,
				Type:  ParseFieldType(stringValue(v, "type")),
			})
		default:
			warnings = append(warnings, fmt.Sprintf("fields[%d]: unsupported entry of type %T", i, item))
		}
	}
	return fields, warnings
}
