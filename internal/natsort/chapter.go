package natsort

import (
	"regexp"
	"strconv"
)

// Archive names produced by manga scrapers carry an optional volume and a
// chapter number that must compare numerically before anything else:
// "Vol. 2 Ch. 10.5 Title - hash.zip".
var chapterRE = regexp.MustCompile(`[\\/](Vol\. [^ ]+ )?Ch\. ([^ ]+) (.* )?- [a-zA-Z0-9_-]+\.[a-z]{0,3}$`)

// ChapterKey orders sibling archive paths: an extracted chapter number
// wins when both sides have one, otherwise the natural key of the full
// path decides.
type ChapterKey struct {
	chapter    float64
	hasChapter bool
	key        Key
}

// ParseChapterKey builds a ChapterKey for an absolute archive path.
func ParseChapterKey(path string) ChapterKey {
	ck := ChapterKey{key: ParseKey(path)}
	m := chapterRE.FindStringSubmatch(path)
	if m == nil {
		return ck
	}
	if f, err := strconv.ParseFloat(m[2], 64); err == nil {
		ck.chapter = f
		ck.hasChapter = true
	}
	return ck
}

// CompareChapters returns -1, 0, or 1 ordering a against b.
func CompareChapters(a, b ChapterKey) int {
	if a.hasChapter && b.hasChapter {
		if a.chapter < b.chapter {
			return -1
		}
		if a.chapter > b.chapter {
			return 1
		}
	}
	return Compare(a.key, b.key)
}

// ChapterSorter memoizes chapter keys across one directory scan.
type ChapterSorter struct {
	keys map[string]ChapterKey
}

func NewChapterSorter() *ChapterSorter {
	return &ChapterSorter{keys: make(map[string]ChapterKey)}
}

func (s *ChapterSorter) Key(path string) ChapterKey {
	k, ok := s.keys[path]
	if !ok {
		k = ParseChapterKey(path)
		s.keys[path] = k
	}
	return k
}

func (s *ChapterSorter) Compare(a, b string) int {
	return CompareChapters(s.Key(a), s.Key(b))
}
