// Package session implements the per-connection state machine: it owns
// the input buffer and both dimensions' transform options, dispatches
// decoded wire messages by tag, and recomputes and emits CSV after any
// successful mutation.
package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vawk-go/vawk/parse"
	"github.com/vawk-go/vawk/transform"
	"github.com/vawk-go/vawk/wire"
)

// InitializeError is a composite error from an Initialize request; it
// names the specific sub-field whose parse/compile failed.
type InitializeError struct {
	Field string
	Err   error
}

func (e *InitializeError) Error() string {
	return fmt.Sprintf("initialize: field %q: %v", e.Field, e.Err)
}

func (e *InitializeError) Unwrap() error {
	return e.Err
}

// Session holds everything a connection needs to recompute its view of
// the input on demand: the fixed input buffer and two independently
// mutable Options, one per dimension. There is no mutex: the channel's
// single read loop is the only goroutine that ever calls into a
// Session.
type Session struct {
	id  string
	log zerolog.Logger

	inputBuffer []byte
	rowOptions  transform.Options
	colOptions  transform.Options
}

// New constructs a Session over a fixed input buffer. id identifies the
// session in structured logs.
func New(id string, inputBuffer []byte, log zerolog.Logger) *Session {
	return &Session{
		id:          id,
		log:         log.With().Str("session_id", id).Logger(),
		inputBuffer: inputBuffer,
	}
}

// HandleMessage decodes buf as a FromClient message and dispatches it,
// returning the encoded FromServer reply. It never returns nil: decode
// failures, empty messages, and option-mutation failures all produce
// an encoded unexpected_error reply — no request is fatal to the
// session.
func (s *Session) HandleMessage(buf []byte) []byte {
	msg, err := wire.DecodeFromClient(buf)
	if err != nil {
		s.log.Error().Err(err).Msg("message parse error")
		return wire.EncodeFromServer(wire.NewUnexpectedError(err.Error()))
	}
	if msg.IsEmpty() {
		empty := &wire.EmptyMessageError{}
		s.log.Error().Str("tag", "none").Msg(empty.Error())
		return wire.EncodeFromServer(wire.NewUnexpectedError(empty.Error()))
	}

	if err := s.dispatch(msg); err != nil {
		s.log.Error().Err(err).Str("tag", tagName(msg.Tag)).Msg("request failed")
		return wire.EncodeFromServer(wire.NewUnexpectedError(err.Error()))
	}

	out, err := transform.Render(&s.rowOptions, &s.colOptions, s.inputBuffer)
	if err != nil {
		s.log.Error().Err(err).Str("tag", tagName(msg.Tag)).Msg("csv assembly failed")
		return wire.EncodeFromServer(wire.NewUnexpectedError(err.Error()))
	}
	return wire.EncodeFromServer(wire.NewOutput(out))
}

func (s *Session) dispatch(msg *wire.FromClient) error {
	switch msg.Tag {
	case wire.TagInitialize:
		return s.applyInitialize(msg.Initialize)

	case wire.TagSetColumnSeparators:
		return setSeparators(&s.colOptions, msg.SetColumnSeparators.Separators)
	case wire.TagSetColumnRegexSeparator:
		return setRegexSeparator(&s.colOptions, msg.SetColumnRegexSeparator.Pattern)
	case wire.TagSetColumnIndexFilters:
		return setIndexFilters(&s.colOptions, msg.SetColumnIndexFilters.Expression)
	case wire.TagSetColumnRegexFilter:
		return setRegexFilter(&s.colOptions, msg.SetColumnRegexFilter.Pattern)
	case wire.TagSetColumnFilterCombination:
		setCombination(&s.colOptions, msg.SetColumnFilterCombination.Combination)
		return nil

	case wire.TagSetRowSeparators:
		return setSeparators(&s.rowOptions, msg.SetRowSeparators.Separators)
	case wire.TagSetRowRegexSeparator:
		return setRegexSeparator(&s.rowOptions, msg.SetRowRegexSeparator.Pattern)
	case wire.TagSetRowIndexFilters:
		return setIndexFilters(&s.rowOptions, msg.SetRowIndexFilters.Expression)
	case wire.TagSetRowRegexFilter:
		return setRegexFilter(&s.rowOptions, msg.SetRowRegexFilter.Pattern)
	case wire.TagSetRowFilterCombination:
		setCombination(&s.rowOptions, msg.SetRowFilterCombination.Combination)
		return nil
	}

	return fmt.Errorf("unhandled tag %d", msg.Tag)
}

// applyInitialize applies every field of init sequentially, column
// dimension then row dimension. On the first failing field it halts:
// earlier successfully-applied fields are retained, and the failing
// field's own InitializeError is returned.
func (s *Session) applyInitialize(init *wire.Initialize) error {
	if err := setSeparators(&s.colOptions, init.ColumnSeparators); err != nil {
		return &InitializeError{Field: "column_separators", Err: err}
	}
	if err := setRegexSeparator(&s.colOptions, init.ColumnRegexSeparator); err != nil {
		return &InitializeError{Field: "column_regex_separator", Err: err}
	}
	if err := setIndexFilters(&s.colOptions, init.ColumnIndexFilters); err != nil {
		return &InitializeError{Field: "column_index_filters", Err: err}
	}
	if err := setRegexFilter(&s.colOptions, init.ColumnRegexFilter); err != nil {
		return &InitializeError{Field: "column_regex_filter", Err: err}
	}
	setCombination(&s.colOptions, init.ColumnFilterCombination)

	if err := setSeparators(&s.rowOptions, init.RowSeparators); err != nil {
		return &InitializeError{Field: "row_separators", Err: err}
	}
	if err := setRegexSeparator(&s.rowOptions, init.RowRegexSeparator); err != nil {
		return &InitializeError{Field: "row_regex_separator", Err: err}
	}
	if err := setIndexFilters(&s.rowOptions, init.RowIndexFilters); err != nil {
		return &InitializeError{Field: "row_index_filters", Err: err}
	}
	if err := setRegexFilter(&s.rowOptions, init.RowRegexFilter); err != nil {
		return &InitializeError{Field: "row_regex_filter", Err: err}
	}
	setCombination(&s.rowOptions, init.RowFilterCombination)

	return nil
}

// setSeparators reparses reps and replaces o.LiteralSeparators, or
// clears it and returns the parse error.
func setSeparators(o *transform.Options, reps wire.Separators) error {
	if len(reps) == 0 {
		o.LiteralSeparators = nil
		return nil
	}
	tr, err := parse.ParseFieldSeparators([]string(reps))
	if err != nil {
		o.LiteralSeparators = nil
		return err
	}
	o.LiteralSeparators = tr
	return nil
}

func setRegexSeparator(o *transform.Options, pattern string) error {
	if pattern == "" {
		o.RegexSeparator = nil
		return nil
	}
	re, err := parse.CompileRegex(pattern)
	if err != nil {
		o.RegexSeparator = nil
		return err
	}
	o.RegexSeparator = re
	return nil
}

func setIndexFilters(o *transform.Options, expr string) error {
	if expr == "" {
		o.IndexFilters = nil
		return nil
	}
	rules, err := parse.ParseIndexFilters(expr)
	if err != nil {
		o.IndexFilters = nil
		return err
	}
	o.IndexFilters = rules
	return nil
}

func setRegexFilter(o *transform.Options, pattern string) error {
	if pattern == "" {
		o.RegexFilter = nil
		return nil
	}
	re, err := parse.CompileRegex(pattern)
	if err != nil {
		o.RegexFilter = nil
		return err
	}
	o.RegexFilter = re
	return nil
}

func setCombination(o *transform.Options, c wire.Combination) {
	switch c {
	case wire.CombinationAnd:
		and := transform.And
		o.Combination = &and
	case wire.CombinationOr:
		or := transform.Or
		o.Combination = &or
	default:
		o.Combination = nil
	}
}

func tagName(t wire.Tag) string {
	switch t {
	case wire.TagInitialize:
		return "initialize"
	case wire.TagSetColumnSeparators:
		return "set_column_separators"
	case wire.TagSetColumnRegexSeparator:
		return "set_column_regex_separator"
	case wire.TagSetColumnIndexFilters:
		return "set_column_index_filters"
	case wire.TagSetColumnRegexFilter:
		return "set_column_regex_filter"
	case wire.TagSetColumnFilterCombination:
		return "set_column_filter_combination"
	case wire.TagSetRowSeparators:
		return "set_row_separators"
	case wire.TagSetRowRegexSeparator:
		return "set_row_regex_separator"
	case wire.TagSetRowIndexFilters:
		return "set_row_index_filters"
	case wire.TagSetRowRegexFilter:
		return "set_row_regex_filter"
	case wire.TagSetRowFilterCombination:
		return "set_row_filter_combination"
	default:
		return "unknown"
	}
}
