// Package errors provides located errors for rule-set parsing and validation.
//
// Parsing and validation accumulate problems in an ErrorList instead of
// stopping at the first one, so a single compile reports everything that is
// wrong with a source. Each Error carries a category, a message, the
// ast.Location it refers to and an optional suggestion.
package errors
