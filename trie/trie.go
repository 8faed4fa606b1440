// Package trie implements a byte-edged prefix tree used to recognize
// multi-byte separators while scanning a buffer one byte at a time.
//
// A Trie stores a set of non-empty byte sequences (separators). Membership
// queries are three-valued rather than boolean because the caller is
// scanning a buffer left to right and needs to know not just whether the
// bytes seen so far could be a separator, but whether a longer separator
// might still be found by reading one more byte.
package trie

// Membership classifies how a candidate byte sequence relates to the set
// of sequences stored in a Trie.
type Membership int

const (
	// NotIncluded means no stored sequence begins with the queried prefix.
	NotIncluded Membership = iota

	// Included means the queried prefix is a proper prefix of (or equal to)
	// a stored sequence whose node still has children — reading more bytes
	// may extend the match.
	Included

	// IncludedAndTerminal means the queried prefix exactly equals a stored
	// sequence and that sequence has no stored extension — the match is
	// unambiguous.
	IncludedAndTerminal
)

// Trie is a rooted tree whose edges are labeled by single bytes. A node
// with no outgoing edges marks a terminal insertion. The zero value is an
// empty trie, ready to use.
type Trie struct {
	children map[byte]*Trie
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{}
}

// Insert adds path to the set of recognized separators. Inserting the
// empty byte slice is a no-op — the empty separator is never stored.
func (t *Trie) Insert(path []byte) {
	if len(path) == 0 {
		return
	}
	node := t
	for _, b := range path {
		if node.children == nil {
			node.children = make(map[byte]*Trie)
		}
		child, ok := node.children[b]
		if !ok {
			child = &Trie{}
			node.children[b] = child
		}
		node = child
	}
}

// IsEmpty reports whether the trie has no stored separators.
func (t *Trie) IsEmpty() bool {
	return t == nil || len(t.children) == 0
}

// Membership reports how path relates to the stored separator set. An
// empty path is always NotIncluded.
func (t *Trie) Membership(path []byte) Membership {
	if len(path) == 0 {
		return NotIncluded
	}

	node := t
	for i, b := range path {
		if node == nil {
			return NotIncluded
		}
		child, ok := node.children[b]
		if !ok {
			return NotIncluded
		}
		if i == len(path)-1 {
			if child.IsEmpty() {
				return IncludedAndTerminal
			}
			return Included
		}
		node = child
	}

	// Unreachable: the loop above always returns on the final byte.
	return NotIncluded
}

// Merge unions other into t, mutating t in place. A stored sequence
// reachable from either trie is reachable from the result.
func (t *Trie) Merge(other *Trie) {
	if other.IsEmpty() {
		return
	}
	if t.children == nil {
		t.children = make(map[byte]*Trie)
	}
	for b, otherChild := range other.children {
		child, ok := t.children[b]
		if !ok {
			t.children[b] = otherChild
			continue
		}
		child.Merge(otherChild)
	}
}
