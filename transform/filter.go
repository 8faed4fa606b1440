package transform

import "github.com/vawk-go/vawk/parse"

// keep decides, for each segment at position i, whether to retain it
// based on whichever of the index filter and regex filter are present,
// combined per o.Combination when both are set. Order is preserved.
func keep(o *Options, segments [][]byte) [][]byte {
	hasIndex := len(o.IndexFilters) > 0
	hasRegex := o.RegexFilter != nil

	if !hasIndex && !hasRegex {
		return segments
	}

	combination := And
	if o.Combination != nil {
		combination = *o.Combination
	}

	var out [][]byte
	for i, seg := range segments {
		indexMatch := hasIndex && matchesAnyIndexRule(o.IndexFilters, i)
		regexMatch := hasRegex && o.RegexFilter.Match(seg)

		var keepSeg bool
		switch {
		case hasIndex && hasRegex && combination == Or:
			keepSeg = indexMatch || regexMatch
		case hasIndex && hasRegex:
			keepSeg = indexMatch && regexMatch
		case hasIndex:
			keepSeg = indexMatch
		default:
			keepSeg = regexMatch
		}

		if keepSeg {
			out = append(out, seg)
		}
	}
	return out
}

func matchesAnyIndexRule(rules []parse.IndexRule, i int) bool {
	for _, r := range rules {
		if r.Match(i) {
			return true
		}
	}
	return false
}
