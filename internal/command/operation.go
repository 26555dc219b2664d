// Package command translates one line of text into a structured Operation.
// Parse is a pure function: it never mutates engine state and never aborts
// the process, returning a taxonomy-coded error for anything it can't parse.
package command

import "github.com/wvaviator/mycokv/internal/value"

// Kind identifies which operation a line produced.
type Kind uint8

const (
	Get Kind = iota
	Put
	Delete
	Purge
	ExpireAt
	Time
	Stats
	Calc
)

// Operation is the closed sum of everything the parser can produce.
// Only the fields relevant to Kind are populated.
type Operation struct {
	Kind       Kind
	Key        string
	Value      value.Value
	Timestamp  int64 // ms since epoch, ExpireAt only
	Expression string // Calc only
}
