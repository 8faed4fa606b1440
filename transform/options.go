// Package transform implements the two-stage 2-D splitter and the CSV
// assembler: it turns one fixed input buffer and a pair of per-dimension
// Options (row and column) into the RFC 4180 CSV the client currently
// sees.
package transform

import (
	"github.com/coregx/coregex"
	"github.com/vawk-go/vawk/parse"
	"github.com/vawk-go/vawk/trie"
)

// Combination is the boolean connector used to combine an index filter
// and a regex filter when both are present on the same dimension.
type Combination int

const (
	// And requires both the index filter and the regex filter to match.
	And Combination = iota
	// Or requires either the index filter or the regex filter to match.
	Or
)

// Options holds the split and filter configuration for one dimension
// (row or column). The zero value means "nothing configured": the
// buffer passes through stage 1 as a single segment and stage 2 keeps
// every segment.
type Options struct {
	LiteralSeparators *trie.Trie
	RegexSeparator    *coregex.Regex
	IndexFilters      []parse.IndexRule
	RegexFilter       *coregex.Regex
	Combination       *Combination
}
