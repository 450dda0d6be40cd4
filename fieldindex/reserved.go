package fieldindex

import (
	"slices"
	"strings"
)

// reservedWords holds SQL keywords, platform-managed column names, and
// generic names that collide with functions or types in common databases.
var reservedWords = map[string]struct{}{}

func init() {
	for _, group := range [][]string{
		// SQL
		{
			"SELECT", "FROM", "WHERE", "ORDER", "GROUP", "BY", "HAVING", "UNION",
			"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TABLE",
			"INDEX", "VIEW", "JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "ON",
			"AS", "AND", "OR", "NOT", "IN", "EXISTS", "BETWEEN", "LIKE", "IS",
			"NULL", "TRUE", "FALSE", "CASE", "WHEN", "THEN", "ELSE", "END",
			"DISTINCT", "COUNT", "SUM", "AVG", "MIN", "MAX", "ALL", "ANY",
			"LIMIT", "OFFSET", "FETCH", "FIRST", "LAST", "TOP", "PERCENT",
		},
		// Platform-managed columns
		{
			"OBJECTID", "SHAPE", "SHAPE_LENGTH", "SHAPE_AREA", "GLOBALID",
			"CREATED_USER", "CREATED_DATE", "LAST_EDITED_USER", "LAST_EDITED_DATE",
		},
		// Generic names
		{
			"DATE", "TIME", "TIMESTAMP", "USER", "LEVEL", "SIZE", "TYPE",
			"STATUS", "STATE", "NAME", "VALUE", "KEY", "ID", "RANK",
		},
	} {
		for _, w := range group {
			reservedWords[w] = struct{}{}
		}
	}
}

// IsReserved reports whether name is a reserved word. The comparison is a
// case-insensitive exact match; substrings never match.
func IsReserved(name string) bool {
	_, ok := reservedWords[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// ReservedWords returns the reserved-word table, sorted.
func ReservedWords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	slices.Sort(words)
	return words
}
