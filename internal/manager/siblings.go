package manager

import (
	"os"
	"path/filepath"

	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/natsort"
)

// nextArchivePath scans the directory containing path for the sibling
// archive adjacent to it in the given direction. Candidates are ordered
// chapter-aware so "Ch. 10" follows "Ch. 9", and ties against the current
// path are skipped rather than reopened. The sorter memoizes keys so long
// jumps across many chapters parse each name once.
func nextArchivePath(path string, d display.Direction, sorter *natsort.ChapterSorter) (string, bool) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	want := 1
	if d == display.Backwards {
		want = -1
	}

	var best string
	for _, e := range entries {
		if e.IsDir() || !files.IsArchive(e.Name()) {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if sign(sorter.Compare(candidate, path)) != want {
			continue
		}
		if best != "" && sign(sorter.Compare(candidate, best)) != -want {
			continue
		}
		best = candidate
	}
	return best, best != ""
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
