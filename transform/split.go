package transform

import (
	"github.com/coregx/coregex"
	"github.com/vawk-go/vawk/trie"
)

// splitLiteral performs a greedy left-to-right scan: it walks buf one
// byte at a time, growing a candidate separator against t, and cuts a
// new segment whenever the candidate resolves to an unambiguous
// terminal match.
//
// On a NotIncluded outcome this spills every byte of the failed
// candidate separator into the current segment, not just the byte that
// broke the match — a strict prefix of a separator followed by a
// non-separator byte must stay in the cell intact. A trie never stores
// the empty separator, so a failed one-byte candidate is the common
// case and spilling degenerates to appending that single byte.
func splitLiteral(t *trie.Trie, buf []byte) [][]byte {
	if t.IsEmpty() {
		if len(buf) == 0 {
			return nil
		}
		return [][]byte{buf}
	}

	var segments [][]byte
	var current []byte
	var candidate []byte

	for _, b := range buf {
		candidate = append(candidate, b)
		switch t.Membership(candidate) {
		case trie.NotIncluded:
			current = append(current, candidate...)
			candidate = nil
		case trie.Included:
			// Keep accumulating; nothing to emit yet.
		case trie.IncludedAndTerminal:
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			candidate = nil
		}
	}

	// An unresolved candidate at end of input is not a separator; its
	// bytes belong to the final segment.
	current = append(current, candidate...)
	if len(current) > 0 {
		segments = append(segments, current)
	}

	return segments
}

// splitRegex applies a regex separator to each segment produced by the
// literal pass and concatenates the results in order. A nil regex is a
// pass-through.
func splitRegex(re *coregex.Regex, segments [][]byte) [][]byte {
	if re == nil {
		return segments
	}

	var out [][]byte
	for _, seg := range segments {
		for _, piece := range regexSplitOne(re, seg) {
			// Consecutive separators collapse: empty pieces are dropped,
			// mirroring the literal splitter.
			if len(piece) > 0 {
				out = append(out, piece)
			}
		}
	}
	return out
}

// regexSplitOne splits a single segment on every non-overlapping match of
// re, in the manner of strings.Split but driven by FindIndex since the
// regex engine exposes leftmost-match search rather than a bulk splitter.
func regexSplitOne(re *coregex.Regex, seg []byte) [][]byte {
	var out [][]byte
	rest := seg
	for {
		loc := re.FindIndex(rest)
		if loc == nil {
			out = append(out, rest)
			return out
		}
		start, end := loc[0], loc[1]
		out = append(out, rest[:start])
		if end == start {
			// Empty match: advance one byte to avoid looping forever.
			if end >= len(rest) {
				return out
			}
			out[len(out)-1] = append(out[len(out)-1], rest[end])
			rest = rest[end+1:]
			continue
		}
		rest = rest[end:]
	}
}
