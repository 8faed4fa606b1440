// Package parse turns the small set of user-facing strings this engine
// accepts — separator lists, index filter expressions, and regex patterns
// — into the typed values the transformer (package transform) operates
// on. Every exported function here is pure: given the same input string
// it always returns the same parsed value or the same error.
package parse

import (
	"fmt"
	"unicode/utf8"

	"github.com/vawk-go/vawk/trie"
)

// InvalidFieldSeparatorError reports that a separator string fragment
// could not be parsed. Fragment is the separator string that was
// rejected, included so the UI can point at exactly what was wrong.
type InvalidFieldSeparatorError struct {
	Fragment string
}

func (e *InvalidFieldSeparatorError) Error() string {
	return fmt.Sprintf("invalid separator: %q produced no bytes", e.Fragment)
}

var escapes = map[byte]byte{
	'n': '\n',
	't': '\t',
	'r': '\r',
	's': ' ',
}

// separatorBytes decodes one string_representation into the bytes it
// contributes to the trie. The tokens \n, \t, \r, and \s decode to a
// single byte each; every other rune contributes its UTF-8 encoding.
func separatorBytes(s string) []byte {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			if decoded, ok := escapes[s[i+1]]; ok {
				out = append(out, decoded)
				i += 2
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		out = append(out, []byte(string(r))...)
		i += size
	}
	return out
}

// ParseFieldSeparators parses a list of user-supplied separator strings
// into a single shared trie, inserting the bytes of each string as one
// separator. An empty list, or a list of only empty strings, yields an
// empty trie. A non-empty string that decodes to zero bytes is reported
// as InvalidFieldSeparatorError.
func ParseFieldSeparators(reps []string) (*trie.Trie, error) {
	t := trie.New()
	for _, rep := range reps {
		if rep == "" {
			continue
		}
		decoded := separatorBytes(rep)
		if len(decoded) == 0 {
			return nil, &InvalidFieldSeparatorError{Fragment: rep}
		}
		t.Insert(decoded)
	}
	return t, nil
}
