package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexRuleKind distinguishes the four shapes an IndexRule can take.
type IndexRuleKind int

const (
	// Exact matches exactly one index.
	Exact IndexRuleKind = iota
	// Bounded matches indices in [Lo, Hi).
	Bounded
	// LowerBounded matches indices >= Lo.
	LowerBounded
	// UpperBounded matches indices < Hi.
	UpperBounded
)

// IndexRule is a predicate over non-negative segment positions, built by
// ParseIndexFilters. The zero value is never produced by the parser.
type IndexRule struct {
	Kind   IndexRuleKind
	Lo, Hi int
}

// Match reports whether i satisfies the rule.
func (r IndexRule) Match(i int) bool {
	switch r.Kind {
	case Exact:
		return i == r.Lo
	case Bounded:
		return i >= r.Lo && i < r.Hi
	case LowerBounded:
		return i >= r.Lo
	case UpperBounded:
		return i < r.Hi
	default:
		return false
	}
}

func (r IndexRule) String() string {
	switch r.Kind {
	case Exact:
		return strconv.Itoa(r.Lo)
	case Bounded:
		return fmt.Sprintf("%d..%d", r.Lo, r.Hi)
	case LowerBounded:
		return fmt.Sprintf("%d..", r.Lo)
	case UpperBounded:
		return fmt.Sprintf("..%d", r.Hi)
	default:
		return "<invalid>"
	}
}

// InvalidIndexFiltersError reports that an index filter expression could
// not be parsed. Remainder is the unconsumed tail at the point parsing
// gave up.
type InvalidIndexFiltersError struct {
	Remainder string
}

func (e *InvalidIndexFiltersError) Error() string {
	return fmt.Sprintf("invalid index filter expression at %q", e.Remainder)
}

type ruleScanner struct {
	s   string
	pos int
}

func (sc *ruleScanner) skipSpace() {
	for sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\n', '\r':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *ruleScanner) rest() string {
	return sc.s[sc.pos:]
}

// digits consumes a run of ASCII decimal digits starting at the current
// position and returns the parsed value. ok is false if the cursor isn't
// on a digit.
func (sc *ruleScanner) digits() (n int, ok bool) {
	start := sc.pos
	for sc.pos < len(sc.s) && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
		sc.pos++
	}
	if sc.pos == start {
		return 0, false
	}
	v, err := strconv.Atoi(sc.s[start:sc.pos])
	if err != nil {
		sc.pos = start
		return 0, false
	}
	return v, true
}

func (sc *ruleScanner) consumeDotDot() bool {
	if strings.HasPrefix(sc.rest(), "..") {
		sc.pos += 2
		return true
	}
	return false
}

// rule tries Bounded, LowerBounded, UpperBounded, Exact in that order,
// backing up between attempts, so "1..2" never parses as Exact(1) with
// "..2" left over.
func (sc *ruleScanner) rule() (IndexRule, bool) {
	start := sc.pos

	// Bounded: digits ".." digits
	if lo, ok := sc.digits(); ok {
		if sc.consumeDotDot() {
			if hi, ok := sc.digits(); ok {
				return IndexRule{Kind: Bounded, Lo: lo, Hi: hi}, true
			}
			// LowerBounded: digits ".."
			return IndexRule{Kind: LowerBounded, Lo: lo}, true
		}
		// Exact: digits
		return IndexRule{Kind: Exact, Lo: lo}, true
	}
	sc.pos = start

	// UpperBounded: ".." digits
	if sc.consumeDotDot() {
		if hi, ok := sc.digits(); ok {
			return IndexRule{Kind: UpperBounded, Hi: hi}, true
		}
	}
	sc.pos = start
	return IndexRule{}, false
}

// ParseIndexFilters parses a comma-separated list of index filter
// expressions. Each expression is one of "n" (Exact), "lo..hi"
// (Bounded, half-open), "lo.." (LowerBounded), or "..hi"
// (UpperBounded), with non-negative decimal numbers. Whitespace around
// commas and at the ends of the string is ignored. An empty (or
// whitespace-only) input parses to an empty, non-error rule list.
// Trailing unparsed non-whitespace content is reported as
// InvalidIndexFiltersError.
func ParseIndexFilters(s string) ([]IndexRule, error) {
	sc := &ruleScanner{s: s}
	sc.skipSpace()
	if sc.rest() == "" {
		return nil, nil
	}

	var rules []IndexRule
	for {
		r, ok := sc.rule()
		if !ok {
			return nil, &InvalidIndexFiltersError{Remainder: sc.rest()}
		}
		rules = append(rules, r)

		sc.skipSpace()
		if sc.pos < len(sc.s) && sc.s[sc.pos] == ',' {
			sc.pos++
			sc.skipSpace()
			continue
		}
		break
	}

	sc.skipSpace()
	if sc.rest() != "" {
		return nil, &InvalidIndexFiltersError{Remainder: sc.rest()}
	}

	return rules, nil
}
