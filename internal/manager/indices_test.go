package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"riffle/internal/archive"
	"riffle/internal/display"
	"riffle/internal/logging"
)

// pageDir creates a directory with n page files. Listing never decodes
// them, so empty files are enough for index arithmetic.
func pageDir(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%03d.png", i+1))
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// listArchive opens a directory archive that is only ever indexed, never
// stepped, so it needs no pools behind it.
func listArchive(t *testing.T, n int) *archive.Archive {
	t.Helper()
	a, _ := archive.Open(&archive.Deps{Logger: logging.NewNop()}, pageDir(t, n), t.TempDir())
	t.Cleanup(a.Join)
	if a.PageCount() != n {
		t.Fatalf("archive holds %d pages, want %d", a.PageCount(), n)
	}
	return a
}

func listWindow(t *testing.T, counts ...int) *window {
	t.Helper()
	w := &window{}
	for _, n := range counts {
		w.pushBack(listArchive(t, n))
	}
	return w
}

// slots enumerates every navigable slot of w in order.
func slots(w *window) []pageIndices {
	var out []pageIndices
	for a := 0; a < w.len(); a++ {
		pc := w.archiveAt(a).PageCount()
		if pc == 0 {
			out = append(out, pageIndices{a: a, p: -1})
			continue
		}
		for p := 0; p < pc; p++ {
			out = append(out, pageIndices{a: a, p: p})
		}
	}
	return out
}

func TestAddWalksAcrossArchives(t *testing.T) {
	w := listWindow(t, 3, 0, 2)

	for _, tc := range []struct {
		from pageIndices
		n    int
		want pageIndices
	}{
		{pageIndices{0, 0}, 0, pageIndices{0, 0}},
		{pageIndices{0, 0}, 2, pageIndices{0, 2}},
		{pageIndices{0, 0}, 3, pageIndices{1, -1}},
		{pageIndices{0, 0}, 4, pageIndices{2, 0}},
		{pageIndices{0, 0}, 5, pageIndices{2, 1}},
		{pageIndices{1, -1}, 0, pageIndices{1, -1}},
		{pageIndices{1, -1}, 1, pageIndices{2, 0}},
	} {
		got, ok := w.add(tc.from, tc.n)
		if !ok || got != tc.want {
			t.Errorf("add(%v, %d) = %v, %t, want %v", tc.from, tc.n, got, ok, tc.want)
		}
	}

	if got, ok := w.add(pageIndices{0, 0}, 6); ok {
		t.Errorf("add past the window = %v, want a miss", got)
	}
}

func TestSubWalksAcrossArchives(t *testing.T) {
	w := listWindow(t, 3, 0, 2)

	for _, tc := range []struct {
		from pageIndices
		n    int
		want pageIndices
	}{
		{pageIndices{2, 1}, 1, pageIndices{2, 0}},
		{pageIndices{2, 0}, 1, pageIndices{1, -1}},
		{pageIndices{2, 0}, 2, pageIndices{0, 2}},
		{pageIndices{1, -1}, 1, pageIndices{0, 2}},
		{pageIndices{2, 1}, 5, pageIndices{0, 0}},
	} {
		got, ok := w.sub(tc.from, tc.n)
		if !ok || got != tc.want {
			t.Errorf("sub(%v, %d) = %v, %t, want %v", tc.from, tc.n, got, ok, tc.want)
		}
	}

	if got, ok := w.sub(pageIndices{0, 0}, 1); ok {
		t.Errorf("sub past the window = %v, want a miss", got)
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	w := listWindow(t, 2, 0, 0, 3)
	all := slots(w)

	for i, from := range all {
		for n := 0; n < len(all)-i; n++ {
			mid, ok := w.add(from, n)
			if !ok {
				t.Fatalf("add(%v, %d) missed inside the window", from, n)
			}
			if mid != all[i+n] {
				t.Fatalf("add(%v, %d) = %v, want %v", from, n, mid, all[i+n])
			}
			back, ok := w.sub(mid, n)
			if !ok || back != from {
				t.Fatalf("sub(%v, %d) = %v, %t, want %v back", mid, n, back, ok, from)
			}
		}
	}
}

func TestAbsoluteMovesClampWithinArchive(t *testing.T) {
	w := listWindow(t, 3, 0)

	for _, tc := range []struct {
		from pageIndices
		n    int
		want pageIndices
	}{
		{pageIndices{0, 1}, 1, pageIndices{0, 0}},
		{pageIndices{0, 0}, 2, pageIndices{0, 1}},
		{pageIndices{0, 0}, 99, pageIndices{0, 2}},
		{pageIndices{0, 2}, 0, pageIndices{0, 0}},
		{pageIndices{1, -1}, 5, pageIndices{1, -1}},
	} {
		got, ok := w.tryMovePages(tc.from, display.Absolute, tc.n)
		if !ok || got != tc.want {
			t.Errorf("absolute %d from %v = %v, %t, want %v", tc.n, tc.from, got, ok, tc.want)
		}
	}
}

func TestClampedMovesStopAtBounds(t *testing.T) {
	w := listWindow(t, 3, 0, 2)

	if got := w.moveClamped(pageIndices{0, 1}, display.Backwards, 5); got != (pageIndices{0, 0}) {
		t.Errorf("clamped backwards = %v, want the first slot", got)
	}
	if got := w.moveClamped(pageIndices{2, 0}, display.Forwards, 9); got != (pageIndices{2, 1}) {
		t.Errorf("clamped forwards = %v, want the last slot", got)
	}
	if got := w.moveClampedInArchive(pageIndices{0, 1}, display.Forwards, 9); got != (pageIndices{0, 2}) {
		t.Errorf("clamped in archive = %v, want the last page of archive 0", got)
	}
	if got := w.moveClampedInArchive(pageIndices{2, 0}, display.Backwards, 9); got != (pageIndices{2, 0}) {
		t.Errorf("clamped in archive = %v, want the first page of archive 2", got)
	}
	if got := w.moveClampedInArchive(pageIndices{1, -1}, display.Forwards, 3); got != (pageIndices{1, -1}) {
		t.Errorf("clamped in empty archive = %v, want the empty slot", got)
	}
}

func TestWrappingRangeWalksAheadThenWrapsToStart(t *testing.T) {
	w := listWindow(t, 10)

	got := w.wrappingRange(pageIndices{0, 5}, 2, 2)
	want := []pageIndices{{0, 5}, {0, 6}, {0, 7}, {0, 3}, {0, 4}}
	if !slices.Equal(got, want) {
		t.Errorf("range around page 5 = %v, want %v", got, want)
	}

	got = w.wrappingRange(pageIndices{0, 0}, 2, 2)
	want = []pageIndices{{0, 0}, {0, 1}, {0, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("range at the start = %v, want %v", got, want)
	}

	got = w.wrappingRange(pageIndices{0, 9}, 2, 2)
	want = []pageIndices{{0, 9}, {0, 7}, {0, 8}}
	if !slices.Equal(got, want) {
		t.Errorf("range at the end = %v, want %v", got, want)
	}
}

func TestWrappingRangeCrossesArchives(t *testing.T) {
	w := listWindow(t, 3, 0, 2)

	got := w.wrappingRange(pageIndices{1, -1}, 1, 2)
	want := []pageIndices{{1, -1}, {2, 0}, {2, 1}, {0, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("range around the empty slot = %v, want %v", got, want)
	}

	got = w.wrappingRangeInArchive(pageIndices{0, 2}, 1, 2)
	want = []pageIndices{{0, 2}, {0, 1}}
	if !slices.Equal(got, want) {
		t.Errorf("in-archive range = %v, want %v", got, want)
	}
}

func TestDiffRangeListsWhatFellBehind(t *testing.T) {
	w := listWindow(t, 10)

	if got := w.diffRange(pageIndices{0, 4}, pageIndices{0, 4}, 1, 2); got != nil {
		t.Errorf("diff of a non-move = %v, want nil", got)
	}

	got := w.diffRange(pageIndices{0, 0}, pageIndices{0, 5}, 1, 2)
	want := []pageIndices{{0, 0}, {0, 1}, {0, 2}, {0, 3}}
	if !slices.Equal(got, want) {
		t.Errorf("diff moving forward = %v, want %v", got, want)
	}

	got = w.diffRange(pageIndices{0, 5}, pageIndices{0, 2}, 1, 2)
	want = []pageIndices{{0, 5}, {0, 6}, {0, 7}}
	if !slices.Equal(got, want) {
		t.Errorf("diff moving backward = %v, want %v", got, want)
	}
}

func TestDiffRangeEmptyWhenWindowsOverlap(t *testing.T) {
	w := listWindow(t, 3)

	if got := w.diffRange(pageIndices{0, 2}, pageIndices{0, 0}, 1, 2); got != nil {
		t.Errorf("diff inside one preload window = %v, want nil", got)
	}
	if got := w.diffRange(pageIndices{0, 0}, pageIndices{0, 2}, 2, 2); got != nil {
		t.Errorf("diff inside one preload window = %v, want nil", got)
	}
}

func TestComparePagesRejectsMixedSlots(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("comparing a page against an empty slot of the same archive should panic")
		}
	}()
	comparePages(pageIndices{a: 0, p: 1}, pageIndices{a: 0, p: -1})
}
