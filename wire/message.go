// Package wire implements the length-prefixed, field-tagged binary
// encoding used between the browser client and the session engine. The
// schema is conceptually protocol-buffer-shaped (tagged oneofs, optional
// fields distinguished by presence) but hand-rolled rather than
// generated, since code generation for the wire message schema is out
// of scope for this engine.
package wire

// Combination mirrors transform.Combination on the wire: a field is
// either absent (no combination set), AND, or OR.
type Combination int

const (
	CombinationUnset Combination = iota
	CombinationAnd
	CombinationOr
)

// Separators is a list of raw, possibly-escaped separator strings as
// typed by the client, matching what parse.ParseFieldSeparators expects.
type Separators []string

// Initialize carries a full option snapshot for both dimensions. A zero
// value field (empty string, nil slice, CombinationUnset) means "leave
// unset" for that option, exactly as an equivalent Set* message would.
type Initialize struct {
	ColumnSeparators        Separators
	ColumnRegexSeparator    string
	ColumnIndexFilters      string
	ColumnRegexFilter       string
	ColumnFilterCombination Combination

	RowSeparators        Separators
	RowRegexSeparator    string
	RowIndexFilters      string
	RowRegexFilter       string
	RowFilterCombination Combination
}

// SetSeparators carries a replacement list of literal separator
// strings for one dimension.
type SetSeparators struct {
	Separators Separators
}

// SetRegexSeparator carries a replacement regex-separator pattern for
// one dimension. An empty pattern clears the regex separator.
type SetRegexSeparator struct {
	Pattern string
}

// SetIndexFilters carries a replacement index-filter expression for one
// dimension. An empty expression clears the index filters.
type SetIndexFilters struct {
	Expression string
}

// SetRegexFilter carries a replacement regex-filter pattern for one
// dimension. An empty pattern clears the regex filter.
type SetRegexFilter struct {
	Pattern string
}

// SetFilterCombination carries a replacement AND/OR/unset combination
// for one dimension.
type SetFilterCombination struct {
	Combination Combination
}

// FromClient is the decoded form of every request the session can
// receive. Exactly one of the typed fields is non-nil; Tag identifies
// which. A message with every field nil decodes successfully but is
// rejected by the session as an empty message.
type FromClient struct {
	Tag Tag

	Initialize *Initialize

	SetColumnSeparators        *SetSeparators
	SetColumnRegexSeparator    *SetRegexSeparator
	SetColumnIndexFilters      *SetIndexFilters
	SetColumnRegexFilter       *SetRegexFilter
	SetColumnFilterCombination *SetFilterCombination

	SetRowSeparators        *SetSeparators
	SetRowRegexSeparator    *SetRegexSeparator
	SetRowIndexFilters      *SetIndexFilters
	SetRowRegexFilter       *SetRegexFilter
	SetRowFilterCombination *SetFilterCombination
}

// FromServer is the encoded form of every reply the session can send.
// Exactly one of Output or UnexpectedError is set.
type FromServer struct {
	Tag Tag

	// Output is the rendered CSV bytes of a successful recompute.
	Output []byte

	// UnexpectedError carries a human-readable description of a
	// request-level failure (parse, compile, assembly).
	UnexpectedError string
}

// IsEmpty reports whether no oneof variant was set. The session reports
// this case as an EmptyMessageError rather than dispatching.
func (m *FromClient) IsEmpty() bool {
	return m.Tag == TagUnknown
}

// Tag identifies which oneof variant a FromClient or FromServer message
// carries. Tags are stable across versions: an unrecognized tag is a
// forward-compatibility parse error, not a fatal one.
type Tag uint8

const (
	TagUnknown Tag = iota

	TagInitialize

	TagSetColumnSeparators
	TagSetColumnRegexSeparator
	TagSetColumnIndexFilters
	TagSetColumnRegexFilter
	TagSetColumnFilterCombination

	TagSetRowSeparators
	TagSetRowRegexSeparator
	TagSetRowIndexFilters
	TagSetRowRegexFilter
	TagSetRowFilterCombination

	TagOutput
	TagUnexpectedError
)
