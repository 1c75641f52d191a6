package util

import "strings"

// SplitCommaSeparated splits a comma-separated string and trims whitespace from each element.
// Empty input returns nil.
func SplitCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// StripQuotes removes one pair of enclosing single or double quotes, if present.
// Inner quotes are left alone; a lone quote character is returned unchanged.
func StripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// CleanCell normalizes a raw inventory or device-output cell: trims whitespace,
// drops a UTF-8 BOM if the cell came from the first column of a file, and
// strips enclosing quotes.
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return StripQuotes(strings.TrimSpace(s))
}

// SplitFields splits a line into whitespace-separated fields, honoring double
// quotes so that quoted values may contain spaces. Quotes are kept; callers
// that need bare values strip them with StripQuotes.
func SplitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !inQuote:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}
