package transform

import (
	"reflect"
	"testing"

	"github.com/vawk-go/vawk/parse"
)

func TestKeep_IndexFilters(t *testing.T) {
	data := bytesSlices("The", "quick", "brown", "fox", "jumped", "over", "the", "lazy", "dog")
	o := &Options{
		IndexFilters: []parse.IndexRule{
			{Kind: parse.Exact, Lo: 1},
			{Kind: parse.LowerBounded, Lo: 5},
		},
	}

	got := keep(o, data)
	want := bytesSlices("quick", "over", "the", "lazy", "dog")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keep = %q, want %q", got, want)
	}
}

// TestKeep_RegexFilter keeps only the lsof-style rows whose port
// matches, in input order.
func TestKeep_RegexFilter(t *testing.T) {
	re := mustCompile(t, `3[0-9]{3}`)
	data := bytesSlices(
		"COMMAND\tPID\tUSER\tFD\tTYPE\tSIZE/OFF\tNODE\tNAME",
		"loginwind\t168\tjimberlage\t7u\tIPv4\t0t0\tUDP\t*:5678",
		"SystemUIS\t343\tjimberlage\t5u\tIPv4\t0t0\tUDP\t*:3100",
		"SystemUIS\t343\tjimberlage\t8u\tIPv4\t0t0\tUDP\t*:9004",
		"rapportd\t379\tjimberlage\t4u\tIPv4\t0t0\tTCP\t*:3001 (LISTEN)",
		"rapportd\t379\tjimberlage\t5u\tIPv6\t0t0\tTCP\t*:3005 (LISTEN)",
	)
	o := &Options{RegexFilter: re}

	got := keep(o, data)
	want := bytesSlices(
		"SystemUIS\t343\tjimberlage\t5u\tIPv4\t0t0\tUDP\t*:3100",
		"rapportd\t379\tjimberlage\t4u\tIPv4\t0t0\tTCP\t*:3001 (LISTEN)",
		"rapportd\t379\tjimberlage\t5u\tIPv6\t0t0\tTCP\t*:3005 (LISTEN)",
	)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keep = %q, want %q", got, want)
	}
}

func TestKeep_Combination(t *testing.T) {
	data := bytesSlices("ab", "cd", "ef", "gh")
	indexFilters := []parse.IndexRule{{Kind: parse.Exact, Lo: 0}, {Kind: parse.Exact, Lo: 2}}
	re := mustCompile(t, `d`)

	and := And
	gotAnd := keep(&Options{IndexFilters: indexFilters, RegexFilter: re, Combination: &and}, data)
	if len(gotAnd) != 0 {
		t.Errorf("AND combination = %q, want empty", gotAnd)
	}

	or := Or
	gotOr := keep(&Options{IndexFilters: indexFilters, RegexFilter: re, Combination: &or}, data)
	wantOr := bytesSlices("ab", "cd", "ef")
	if !reflect.DeepEqual(gotOr, wantOr) {
		t.Errorf("OR combination = %q, want %q", gotOr, wantOr)
	}
}

func TestKeep_NoFiltersPassesThrough(t *testing.T) {
	data := bytesSlices("a", "b")
	got := keep(&Options{}, data)
	if !reflect.DeepEqual(got, data) {
		t.Errorf("keep with no filters = %q, want %q", got, data)
	}
}
