package catalog

import (
	"fmt"
	"strings"
)

const (
	// DefaultIndent is the indent width used by the command line tool.
	DefaultIndent = 4
	// EnumName is the name of the generated enumeration.
	EnumName = "eItems"
)

// Entry is the resolution of one catalog record. Identifier holds the
// unguarded candidate when the record was skipped.
type Entry struct {
	Position   int
	ID         int64
	Name       string
	Identifier string
	Emitted    bool
}

// Resolve sanitizes every record in declared order. Skipped records are
// included with Emitted set to false.
func (g *Generator) Resolve() ([]Entry, error) {
	if g.file == nil {
		return nil, ErrNotLoaded
	}
	entries := make([]Entry, len(g.file.Items))
	for i, item := range g.file.Items {
		token := candidate(item.Name)
		entry := Entry{Position: i, ID: item.ID, Name: item.Name, Identifier: token}
		if !IsReserved(token) {
			entry.Identifier = guardLeadingDigit(token)
			entry.Emitted = true
		}
		entries[i] = entry
	}
	return entries, nil
}

// BuildEnumText renders the loaded catalog as
//
//	enum eItems {
//	    IDENTIFIER = id,
//	};
//
// with indent spaces before each member.
func (g *Generator) BuildEnumText(indent int) (string, error) {
	entries, err := g.Resolve()
	if err != nil {
		return "", err
	}
	if indent < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndent, indent)
	}

	pad := strings.Repeat(" ", indent)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Emitted {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%s = %d,", pad, e.Identifier, e.ID))
	}

	var b strings.Builder
	b.WriteString("enum " + EnumName + " {\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n};\n")
	return b.String(), nil
}
