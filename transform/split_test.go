package transform

import (
	"reflect"
	"testing"

	"github.com/vawk-go/vawk/trie"
)

func bytesSlices(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestSplitLiteral_SingleByteSeparator(t *testing.T) {
	tr := trie.New()
	tr.Insert([]byte("\n"))

	got := splitLiteral(tr, []byte("a\nb\nc"))
	want := bytesSlices("a", "b", "c")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLiteral = %q, want %q", got, want)
	}
}

// TestSplitLiteral_GreedyMultiByteSeparator: a lone \r not followed by
// \n stays in the cell rather than being treated as a separator.
func TestSplitLiteral_GreedyMultiByteSeparator(t *testing.T) {
	tr := trie.New()
	tr.Insert([]byte("\r\n"))

	got := splitLiteral(tr, []byte("a\r\nb\rc\r\nd"))
	want := bytesSlices("a", "b\rc", "d")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLiteral = %q, want %q", got, want)
	}
}

// TestSplitLiteral_SpillsFailedCandidate: a strict prefix of a
// separator, followed by a byte that breaks the match, must have every
// byte of the candidate spilled into the segment — not just the
// breaking byte.
func TestSplitLiteral_SpillsFailedCandidate(t *testing.T) {
	tr := trie.New()
	tr.Insert([]byte("abX")) // three-byte separator

	// "ab" is a strict prefix of the separator; "y" breaks the match.
	// A faithful implementation keeps "aby" intact as one segment.
	got := splitLiteral(tr, []byte("aby"))
	want := bytesSlices("aby")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLiteral = %q, want %q (candidate bytes must spill, not just the last byte)", got, want)
	}
}

// TestSplitLiteral_TrailingPartialSeparatorStaysInSegment: input ending
// mid-way through a multi-byte separator keeps those bytes in the final
// segment.
func TestSplitLiteral_TrailingPartialSeparatorStaysInSegment(t *testing.T) {
	tr := trie.New()
	tr.Insert([]byte("\r\n"))

	got := splitLiteral(tr, []byte("a\r\nb\r"))
	want := bytesSlices("a", "b\r")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLiteral = %q, want %q", got, want)
	}
}

func TestSplitLiteral_CollapsesConsecutiveSeparators(t *testing.T) {
	tr := trie.New()
	tr.Insert([]byte(","))

	got := splitLiteral(tr, []byte("a,,b"))
	want := bytesSlices("a", "b")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLiteral = %q, want %q", got, want)
	}
}

func TestDimensionSplit_NoSeparatorsIsSingleSegment(t *testing.T) {
	o := &Options{}
	got := DimensionSplit(o, []byte("hello world"))
	want := bytesSlices("hello world")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DimensionSplit = %q, want %q", got, want)
	}
}

func TestDimensionSplit_EmptyBufferNoSeparators(t *testing.T) {
	o := &Options{}
	got := DimensionSplit(o, []byte(""))
	if got != nil {
		t.Errorf("DimensionSplit(empty) = %q, want nil", got)
	}
}
