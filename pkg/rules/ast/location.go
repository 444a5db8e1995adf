package ast

import "fmt"

// Location represents a position in a rule-set source.
type Location struct {
	File   string // Rule-set name or source path
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns the location as "file:line:col".
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid reports whether the location points at a concrete line.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
