package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vawk-go/vawk/internal/conv"
)

// MessageParseError reports that a byte buffer could not be decoded as
// a well-formed wire message: a truncated length prefix, a field body
// shorter than its declared length, or an unrecognized field tag.
type MessageParseError struct {
	Err error
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("message parse error: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// EmptyMessageError reports that a FromClient message decoded
// successfully but carried no oneof variant at all.
type EmptyMessageError struct{}

func (e *EmptyMessageError) Error() string {
	return "empty message: no variant set"
}

// field tags within a message body. 0 is reserved as the end-of-fields
// sentinel so decoding can stop without a separate field count.
const (
	fieldEnd uint8 = iota
	fieldSeparatorsList
	fieldRegexPattern
	fieldIndexExpression
	fieldCombination
	fieldBytes
	fieldString
)

// Initialize carries ten optional fields in one body, so each slot gets
// its own tag: an absent column field must never be mistaken for the
// matching row field that happens to come next on the wire.
const (
	initColumnSeparators uint8 = iota + 1
	initColumnRegexSeparator
	initColumnIndexFilters
	initColumnRegexFilter
	initColumnCombination
	initRowSeparators
	initRowRegexSeparator
	initRowIndexFilters
	initRowRegexFilter
	initRowCombination
)

// EncodeFromClient serializes msg as a length-prefixed wire message:
// a uint32 big-endian length prefix, then a uint8 tag, then zero or
// more tagged fields, then the fieldEnd sentinel.
func EncodeFromClient(msg *FromClient) []byte {
	var body bytes.Buffer
	body.WriteByte(byte(msg.Tag))

	switch msg.Tag {
	case TagInitialize:
		writeInitializeFields(&body, msg.Initialize)
	case TagSetColumnSeparators:
		writeSeparatorsField(&body, fieldSeparatorsList, msg.SetColumnSeparators.Separators)
	case TagSetColumnRegexSeparator:
		writeStringField(&body, fieldRegexPattern, msg.SetColumnRegexSeparator.Pattern)
	case TagSetColumnIndexFilters:
		writeStringField(&body, fieldIndexExpression, msg.SetColumnIndexFilters.Expression)
	case TagSetColumnRegexFilter:
		writeStringField(&body, fieldRegexPattern, msg.SetColumnRegexFilter.Pattern)
	case TagSetColumnFilterCombination:
		writeCombinationField(&body, fieldCombination, msg.SetColumnFilterCombination.Combination)
	case TagSetRowSeparators:
		writeSeparatorsField(&body, fieldSeparatorsList, msg.SetRowSeparators.Separators)
	case TagSetRowRegexSeparator:
		writeStringField(&body, fieldRegexPattern, msg.SetRowRegexSeparator.Pattern)
	case TagSetRowIndexFilters:
		writeStringField(&body, fieldIndexExpression, msg.SetRowIndexFilters.Expression)
	case TagSetRowRegexFilter:
		writeStringField(&body, fieldRegexPattern, msg.SetRowRegexFilter.Pattern)
	case TagSetRowFilterCombination:
		writeCombinationField(&body, fieldCombination, msg.SetRowFilterCombination.Combination)
	}

	body.WriteByte(fieldEnd)
	return framed(body.Bytes())
}

// DecodeFromClient parses a length-prefixed buffer previously produced
// by EncodeFromClient (or by the browser client using the same schema).
func DecodeFromClient(buf []byte) (*FromClient, error) {
	payload, err := unframe(buf)
	if err != nil {
		return nil, &MessageParseError{Err: err}
	}
	r := bytes.NewReader(payload)

	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, &MessageParseError{Err: err}
	}
	msg := &FromClient{Tag: Tag(tagByte)}

	switch msg.Tag {
	case TagInitialize:
		init, err := readInitializeFields(r)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.Initialize = init
	case TagSetColumnSeparators:
		sep, err := readSeparatorsField(r)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetColumnSeparators = &SetSeparators{Separators: sep}
	case TagSetColumnRegexSeparator:
		s, err := readOneStringField(r, fieldRegexPattern)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetColumnRegexSeparator = &SetRegexSeparator{Pattern: s}
	case TagSetColumnIndexFilters:
		s, err := readOneStringField(r, fieldIndexExpression)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetColumnIndexFilters = &SetIndexFilters{Expression: s}
	case TagSetColumnRegexFilter:
		s, err := readOneStringField(r, fieldRegexPattern)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetColumnRegexFilter = &SetRegexFilter{Pattern: s}
	case TagSetColumnFilterCombination:
		c, err := readCombinationField(r)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetColumnFilterCombination = &SetFilterCombination{Combination: c}
	case TagSetRowSeparators:
		sep, err := readSeparatorsField(r)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetRowSeparators = &SetSeparators{Separators: sep}
	case TagSetRowRegexSeparator:
		s, err := readOneStringField(r, fieldRegexPattern)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetRowRegexSeparator = &SetRegexSeparator{Pattern: s}
	case TagSetRowIndexFilters:
		s, err := readOneStringField(r, fieldIndexExpression)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetRowIndexFilters = &SetIndexFilters{Expression: s}
	case TagSetRowRegexFilter:
		s, err := readOneStringField(r, fieldRegexPattern)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetRowRegexFilter = &SetRegexFilter{Pattern: s}
	case TagSetRowFilterCombination:
		c, err := readCombinationField(r)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.SetRowFilterCombination = &SetFilterCombination{Combination: c}
	case TagUnknown:
		// A tag of 0 decodes successfully but carries no variant; the
		// session layer reports this as an EmptyMessageError rather
		// than a decode failure. See FromClient.IsEmpty.
		if err := expectFieldEnd(r); err != nil {
			return nil, &MessageParseError{Err: err}
		}
	default:
		return nil, &MessageParseError{Err: fmt.Errorf("unrecognized tag %d", tagByte)}
	}

	return msg, nil
}

// EncodeFromServer serializes a reply. Exactly one of output or
// unexpectedError should be non-zero; callers build these through
// NewOutput/NewUnexpectedError rather than by hand.
func EncodeFromServer(msg *FromServer) []byte {
	var body bytes.Buffer
	body.WriteByte(byte(msg.Tag))

	switch msg.Tag {
	case TagOutput:
		writeBytesField(&body, fieldBytes, msg.Output)
	case TagUnexpectedError:
		writeStringField(&body, fieldString, msg.UnexpectedError)
	}

	body.WriteByte(fieldEnd)
	return framed(body.Bytes())
}

// NewOutput builds a FromServer carrying a successful recompute's CSV
// bytes.
func NewOutput(csv []byte) *FromServer {
	return &FromServer{Tag: TagOutput, Output: csv}
}

// NewUnexpectedError builds a FromServer carrying a human-readable
// description of a request-level failure.
func NewUnexpectedError(description string) *FromServer {
	return &FromServer{Tag: TagUnexpectedError, UnexpectedError: description}
}

// DecodeFromServer parses a length-prefixed buffer previously produced
// by EncodeFromServer. The session engine never needs this direction,
// but it completes the codec symmetrically for clients and tests.
func DecodeFromServer(buf []byte) (*FromServer, error) {
	payload, err := unframe(buf)
	if err != nil {
		return nil, &MessageParseError{Err: err}
	}
	r := bytes.NewReader(payload)

	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, &MessageParseError{Err: err}
	}
	msg := &FromServer{Tag: Tag(tagByte)}

	switch msg.Tag {
	case TagOutput:
		b, err := readOneBytesField(r, fieldBytes)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.Output = b
	case TagUnexpectedError:
		s, err := readOneStringField(r, fieldString)
		if err != nil {
			return nil, &MessageParseError{Err: err}
		}
		msg.UnexpectedError = s
	default:
		return nil, &MessageParseError{Err: fmt.Errorf("unrecognized tag %d", tagByte)}
	}

	return msg, nil
}

// framed prepends a uint32 big-endian length prefix to payload.
func framed(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, conv.IntToUint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// unframe strips and validates the length prefix, returning the
// payload it describes.
func unframe(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("buffer shorter than length prefix: %d bytes", len(buf))
	}
	n := conv.Uint32ToInt(binary.BigEndian.Uint32(buf))
	if len(buf)-4 != n {
		return nil, fmt.Errorf("length prefix %d does not match payload size %d", n, len(buf)-4)
	}
	return buf[4 : 4+n], nil
}

func writeStringField(w *bytes.Buffer, tag uint8, s string) {
	if s == "" {
		return
	}
	w.WriteByte(tag)
	writeUint32(w, conv.IntToUint32(len(s)))
	w.WriteString(s)
}

func writeBytesField(w *bytes.Buffer, tag uint8, b []byte) {
	if len(b) == 0 {
		return
	}
	w.WriteByte(tag)
	writeUint32(w, conv.IntToUint32(len(b)))
	w.Write(b)
}

func writeSeparatorsField(w *bytes.Buffer, tag uint8, seps Separators) {
	if len(seps) == 0 {
		return
	}
	w.WriteByte(tag)
	writeUint32(w, conv.IntToUint32(len(seps)))
	for _, s := range seps {
		writeUint32(w, conv.IntToUint32(len(s)))
		w.WriteString(s)
	}
}

func writeCombinationField(w *bytes.Buffer, tag uint8, c Combination) {
	if c == CombinationUnset {
		return
	}
	w.WriteByte(tag)
	w.WriteByte(byte(c))
}

func writeInitializeFields(w *bytes.Buffer, init *Initialize) {
	if init == nil {
		return
	}
	// Each field is written in a fixed order under its own init* tag and
	// skipped entirely when its source value is empty, so the decoder can
	// tell which slot each present value belongs to without a parallel
	// bitmask. An empty value and an unset one decode alike, as the
	// field's zero value. See readInitializeFields.
	writeSeparatorsField(w, initColumnSeparators, init.ColumnSeparators)
	writeStringField(w, initColumnRegexSeparator, init.ColumnRegexSeparator)
	writeStringField(w, initColumnIndexFilters, init.ColumnIndexFilters)
	writeStringField(w, initColumnRegexFilter, init.ColumnRegexFilter)
	writeCombinationField(w, initColumnCombination, init.ColumnFilterCombination)
	writeSeparatorsField(w, initRowSeparators, init.RowSeparators)
	writeStringField(w, initRowRegexSeparator, init.RowRegexSeparator)
	writeStringField(w, initRowIndexFilters, init.RowIndexFilters)
	writeStringField(w, initRowRegexFilter, init.RowRegexFilter)
	writeCombinationField(w, initRowCombination, init.RowFilterCombination)
}

func writeUint32(w *bytes.Buffer, n uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	w.Write(buf[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readLengthPrefixedString(r *bytes.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, conv.Uint32ToInt(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readOneStringField reads a single optional tagged string field
// followed by the end-of-fields sentinel. An absent field (the
// sentinel appears immediately) decodes as "".
func readOneStringField(r *bytes.Reader, want uint8) (string, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if tagByte == fieldEnd {
		return "", nil
	}
	if tagByte != want {
		return "", fmt.Errorf("unexpected field tag %d, want %d", tagByte, want)
	}
	s, err := readLengthPrefixedString(r)
	if err != nil {
		return "", err
	}
	if err := expectFieldEnd(r); err != nil {
		return "", err
	}
	return s, nil
}

func readOneBytesField(r *bytes.Reader, want uint8) ([]byte, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if tagByte == fieldEnd {
		return nil, nil
	}
	if tagByte != want {
		return nil, fmt.Errorf("unexpected field tag %d, want %d", tagByte, want)
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, conv.Uint32ToInt(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if err := expectFieldEnd(r); err != nil {
		return nil, err
	}
	return buf, nil
}

func readSeparatorsField(r *bytes.Reader) (Separators, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if tagByte == fieldEnd {
		return nil, nil
	}
	if tagByte != fieldSeparatorsList {
		return nil, fmt.Errorf("unexpected field tag %d, want %d", tagByte, fieldSeparatorsList)
	}
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	seps := make(Separators, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := readLengthPrefixedString(r)
		if err != nil {
			return nil, err
		}
		seps = append(seps, s)
	}
	if err := expectFieldEnd(r); err != nil {
		return nil, err
	}
	return seps, nil
}

func readCombinationField(r *bytes.Reader) (Combination, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return CombinationUnset, err
	}
	if tagByte == fieldEnd {
		return CombinationUnset, nil
	}
	if tagByte != fieldCombination {
		return CombinationUnset, fmt.Errorf("unexpected field tag %d, want %d", tagByte, fieldCombination)
	}
	b, err := r.ReadByte()
	if err != nil {
		return CombinationUnset, err
	}
	if err := expectFieldEnd(r); err != nil {
		return CombinationUnset, err
	}
	return Combination(b), nil
}

// readInitializeFields reads the fixed ten-field Initialize sequence in
// the same order writeInitializeFields lays it out. A slot whose tag is
// absent (the next byte is some later field's tag, or the end-of-fields
// sentinel) decodes as that field's zero value.
func readInitializeFields(r *bytes.Reader) (*Initialize, error) {
	init := &Initialize{}

	seps, err := readOptionalSeparatorsList(r, initColumnSeparators)
	if err != nil {
		return nil, err
	}
	init.ColumnSeparators = seps

	s, err := readOptionalTaggedString(r, initColumnRegexSeparator)
	if err != nil {
		return nil, err
	}
	init.ColumnRegexSeparator = s

	s, err = readOptionalTaggedString(r, initColumnIndexFilters)
	if err != nil {
		return nil, err
	}
	init.ColumnIndexFilters = s

	s, err = readOptionalTaggedString(r, initColumnRegexFilter)
	if err != nil {
		return nil, err
	}
	init.ColumnRegexFilter = s

	c, err := readOptionalCombination(r, initColumnCombination)
	if err != nil {
		return nil, err
	}
	init.ColumnFilterCombination = c

	seps, err = readOptionalSeparatorsList(r, initRowSeparators)
	if err != nil {
		return nil, err
	}
	init.RowSeparators = seps

	s, err = readOptionalTaggedString(r, initRowRegexSeparator)
	if err != nil {
		return nil, err
	}
	init.RowRegexSeparator = s

	s, err = readOptionalTaggedString(r, initRowIndexFilters)
	if err != nil {
		return nil, err
	}
	init.RowIndexFilters = s

	s, err = readOptionalTaggedString(r, initRowRegexFilter)
	if err != nil {
		return nil, err
	}
	init.RowRegexFilter = s

	c, err = readOptionalCombination(r, initRowCombination)
	if err != nil {
		return nil, err
	}
	init.RowFilterCombination = c

	if err := expectFieldEnd(r); err != nil {
		return nil, err
	}
	return init, nil
}

// peekTag reads the next tag byte without consuming it — the reader is
// always left positioned before that byte — so a field slot that turns
// out to hold a different field's tag (or the end-of-fields sentinel)
// leaves the stream untouched for whichever call reads it next.
func peekTag(r *bytes.Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if err := r.UnreadByte(); err != nil {
		return 0, err
	}
	return b, nil
}

func readOptionalTaggedString(r *bytes.Reader, want uint8) (string, error) {
	tagByte, err := peekTag(r)
	if err != nil {
		return "", err
	}
	if tagByte != want {
		return "", nil
	}
	if _, err := r.ReadByte(); err != nil {
		return "", err
	}
	return readLengthPrefixedString(r)
}

func readOptionalSeparatorsList(r *bytes.Reader, want uint8) (Separators, error) {
	tagByte, err := peekTag(r)
	if err != nil {
		return nil, err
	}
	if tagByte != want {
		return nil, nil
	}
	if _, err := r.ReadByte(); err != nil {
		return nil, err
	}
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	seps := make(Separators, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := readLengthPrefixedString(r)
		if err != nil {
			return nil, err
		}
		seps = append(seps, s)
	}
	return seps, nil
}

func readOptionalCombination(r *bytes.Reader, want uint8) (Combination, error) {
	tagByte, err := peekTag(r)
	if err != nil {
		return CombinationUnset, err
	}
	if tagByte != want {
		return CombinationUnset, nil
	}
	if _, err := r.ReadByte(); err != nil {
		return CombinationUnset, err
	}
	b, err := r.ReadByte()
	if err != nil {
		return CombinationUnset, err
	}
	return Combination(b), nil
}

func expectFieldEnd(r *bytes.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b != fieldEnd {
		return fmt.Errorf("unexpected trailing field tag %d", b)
	}
	return nil
}
