// Package natsort orders file and archive names the way a human reading
// them would: runs of digits compare as numbers, case is folded, and ties
// fall back to the original string.
package natsort

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Numeric runs parse as decimals so "16.5:" sorts after "16:" and chapter
// names like "ch 100.5" land between 100 and 101. A lone dot separates
// segments without contributing a number.
var segmentRE = regexp.MustCompile(`([^\d.]*)((\d+(\.\d+)?)|\.)`)

type segment struct {
	prefix string
	num    float64
	// last marks the tail segment after the final numeric run. It carries
	// no number and sorts before an otherwise equal numbered segment.
	last bool
}

// Key is a parsed representation of one string, cheap to compare
// repeatedly.
type Key struct {
	original string
	segs     []segment
}

// ParseKey folds and splits s into comparable segments.
func ParseKey(s string) Key {
	folded := cases.Fold().String(s)

	var segs []segment
	end := 0
	for _, m := range segmentRE.FindAllStringSubmatchIndex(folded, -1) {
		prefix := folded[m[2]:m[3]]
		numStr := folded[m[4]:m[5]]
		end = m[1]

		if numStr == "." {
			segs = append(segs, segment{prefix: prefix})
			continue
		}
		f, err := strconv.ParseFloat(numStr, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			segs = append(segs, segment{prefix: folded[m[0]:m[1]]})
			continue
		}
		segs = append(segs, segment{prefix: prefix, num: f})
	}
	segs = append(segs, segment{prefix: folded[end:], last: true})

	return Key{original: s, segs: segs}
}

// Compare returns -1, 0, or 1 ordering a against b.
func Compare(a, b Key) int {
	n := len(a.segs)
	if len(b.segs) < n {
		n = len(b.segs)
	}
	for i := 0; i < n; i++ {
		if c := compareSegments(a.segs[i], b.segs[i]); c != 0 {
			return c
		}
	}
	// Comparing fully equal keys should be rare; break the tie on the
	// original bytes so "05" and "5" have a stable order.
	return strings.Compare(a.original, b.original)
}

func compareSegments(a, b segment) int {
	if c := strings.Compare(a.prefix, b.prefix); c != 0 {
		return c
	}
	switch {
	case a.last && b.last:
		return 0
	case a.last:
		return -1
	case b.last:
		return 1
	case a.num < b.num:
		return -1
	case a.num > b.num:
		return 1
	default:
		return 0
	}
}

// Sorter memoizes parsed keys for one sorting run, typically a single
// directory listing or one multi-archive jump.
type Sorter struct {
	keys map[string]Key
}

func NewSorter() *Sorter {
	return &Sorter{keys: make(map[string]Key)}
}

func (s *Sorter) Key(v string) Key {
	k, ok := s.keys[v]
	if !ok {
		k = ParseKey(v)
		s.keys[v] = k
	}
	return k
}

func (s *Sorter) Compare(a, b string) int {
	return Compare(s.Key(a), s.Key(b))
}

func (s *Sorter) Less(a, b string) bool {
	return s.Compare(a, b) < 0
}

// SortStrings sorts names in natural order using a fresh Sorter.
func SortStrings(names []string) {
	s := NewSorter()
	sort.SliceStable(names, func(i, j int) bool {
		return s.Less(names[i], names[j])
	})
}
