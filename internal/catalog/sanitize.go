package catalog

import "strings"

var reserved = map[string]struct{}{
	"":     {},
	"0":    {},
	"NULL": {},
	"NONE": {},
	"N":    {},
}

// IsReserved reports whether token is one of the identifiers that never
// produce an enum member.
func IsReserved(token string) bool {
	_, ok := reserved[token]
	return ok
}

// Sanitize derives an enum identifier from a raw item name: trim, collapse
// each run of characters outside [A-Za-z0-9_] into one underscore, uppercase
// ASCII letters, and prefix an underscore when the result starts with a digit.
func Sanitize(name string) string {
	return guardLeadingDigit(candidate(name))
}

// candidate is Sanitize without the leading digit guard. The reserved check
// runs against this form so that a bare "0" is still rejected.
func candidate(name string) string {
	trimmed := strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(trimmed))
	inRun := false
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			if !inRun {
				b.WriteByte('_')
				inRun = true
			}
			continue
		}
		inRun = false
	}
	return b.String()
}

func guardLeadingDigit(token string) string {
	if token != "" && token[0] >= '0' && token[0] <= '9' {
		return "_" + token
	}
	return token
}
