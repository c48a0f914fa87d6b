package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"riffle/internal/config"
	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/pools"
)

const waitTimeout = 10 * time.Second

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	cfg := config.Default()
	cfg.Loading.Threads = 1
	cfg.Downscaling.Threads = 1
	cfg.Downscaling.BackgroundJobs = 1
	cfg.Extraction.Threads = 2
	p := pools.New(context.Background(), &cfg, nil, logging.NewNop())
	t.Cleanup(p.Close)
	return &Deps{Pools: p, Logger: logging.NewNop()}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.WriteFile(path, pngBytes(t, w, h), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func buildZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
}

// drivePage steps one page until it has nothing left to do for work.
func drivePage(t *testing.T, a *Archive, i int, work Work) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for a.HasWork(i, work) {
		progress, wait := a.Step(i, work)
		switch progress {
		case Waiting:
			select {
			case <-wait:
			case <-deadline:
				t.Fatalf("page %d stuck waiting during %s", i, work)
			}
		case Parked:
			t.Fatalf("page %d parked during %s", i, work)
		}
	}
}

func pageNames(a *Archive) []string {
	names := make([]string, 0, a.PageCount())
	for _, info := range a.Pages() {
		names = append(names, info.Name)
	}
	return names
}

func TestDirectorySortsNaturally(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c10.png", "c2.png"} {
		writePNG(t, filepath.Join(dir, name), 4, 4)
	}

	a, initial := Open(deps, dir, t.TempDir())
	defer a.Join()

	if a.Kind() != Directory {
		t.Fatalf("kind = %v, want %v", a.Kind(), Directory)
	}
	if initial != 0 {
		t.Errorf("initial = %d, want 0", initial)
	}
	want := []string{"a.png", "b.png", "c2.png", "c10.png"}
	got := pageNames(a)
	if len(got) != len(want) {
		t.Fatalf("pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOpenSingleFileLandsOnIt(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c10.png", "c2.png"} {
		writePNG(t, filepath.Join(dir, name), 4, 4)
	}

	a, initial := Open(deps, filepath.Join(dir, "c2.png"), t.TempDir())
	defer a.Join()

	if a.Kind() != Directory {
		t.Fatalf("kind = %v, want %v", a.Kind(), Directory)
	}
	if initial != 2 {
		t.Errorf("initial = %d, want 2 for c2.png", initial)
	}
	if a.Name() != filepath.Base(dir) {
		t.Errorf("name = %q, want the directory name %q", a.Name(), filepath.Base(dir))
	}
}

func TestOpenMissingPathIsBroken(t *testing.T) {
	deps := newTestDeps(t)

	a, initial := Open(deps, filepath.Join(t.TempDir(), "gone.zip"), t.TempDir())
	defer a.Join()

	if a.Kind() != Broken {
		t.Fatalf("kind = %v, want %v", a.Kind(), Broken)
	}
	if initial != -1 {
		t.Errorf("initial = %d, want -1", initial)
	}
	content, _ := a.Displayable(0, false)
	if content.Kind != display.Error || content.Error == "" {
		t.Errorf("displayable = %+v, want an error with a reason", content)
	}
}

func TestGarbageArchiveIsBroken(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.zip")
	if err := os.WriteFile(path, []byte("not an archive at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, _ := Open(deps, path, t.TempDir())
	defer a.Join()

	if a.Kind() != Broken {
		t.Fatalf("kind = %v, want %v", a.Kind(), Broken)
	}
	content, _ := a.Displayable(0, false)
	if !strings.Contains(content.Error, "Failed to open") {
		t.Errorf("error = %q, want an open failure", content.Error)
	}
}

func TestEmptyDirectoryHasNothingToDisplay(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()

	a, initial := Open(deps, dir, t.TempDir())
	defer a.Join()

	if initial != -1 {
		t.Errorf("initial = %d, want -1", initial)
	}
	content, name := a.Displayable(initial, false)
	if content.Kind != display.Error {
		t.Fatalf("kind = %v, want %v", content.Kind, display.Error)
	}
	if !strings.Contains(content.Error, "Found nothing to display") {
		t.Errorf("error = %q", content.Error)
	}
	if name != "" {
		t.Errorf("page name = %q, want empty", name)
	}
}

func TestCompressedExtractScanLoad(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "book.zip")
	buildZip(t, path, map[string][]byte{
		"book/002.png": pngBytes(t, 8, 6),
		"book/001.png": pngBytes(t, 10, 5),
		"book/010.png": pngBytes(t, 4, 4),
	})

	a, initial := Open(deps, path, t.TempDir())
	defer a.Join()

	if a.Kind() != Compressed {
		t.Fatalf("kind = %v, want %v", a.Kind(), Compressed)
	}
	if initial != 0 {
		t.Errorf("initial = %d, want 0", initial)
	}
	want := []string{"001.png", "002.png", "010.png"}
	if got := pageNames(a); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("pages = %v, want %v", got, want)
	}

	a.StartExtraction()
	work := FinalizeWork(false, display.WorkParams{})
	drivePage(t, a, 0, work)

	content, name := a.Displayable(0, false)
	if content.Kind != display.Image {
		t.Fatalf("kind = %v (%q), want %v", content.Kind, content.Error, display.Image)
	}
	if name != "001.png" {
		t.Errorf("name = %q, want 001.png", name)
	}
	if content.Res != (display.Res{W: 10, H: 5}) {
		t.Errorf("res = %v, want 10x5", content.Res)
	}
	if content.Still == nil || content.Still.Res != (display.Res{W: 10, H: 5}) {
		t.Errorf("still = %+v, want full size pixels", content.Still)
	}
}

func TestDownscaleFitsTarget(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page.png"), 100, 80)

	a, _ := Open(deps, dir, t.TempDir())
	defer a.Join()

	fit := display.WorkParams{Target: targetOf(50, 50)}
	drivePage(t, a, 0, FinalizeWork(false, fit))

	content, _ := a.Displayable(0, false)
	if content.Kind != display.Image {
		t.Fatalf("kind = %v (%q), want %v", content.Kind, content.Error, display.Image)
	}
	if content.Still.Res != (display.Res{W: 50, H: 40}) {
		t.Errorf("fitted res = %v, want 50x40", content.Still.Res)
	}
	if content.Res != (display.Res{W: 100, H: 80}) {
		t.Errorf("original res = %v, want 100x80", content.Res)
	}

	// Same target again: nothing left to do.
	if a.HasWork(0, FinalizeWork(false, fit)) {
		t.Error("page claims work for a target it already fits")
	}

	// A new target forces a fresh decode and resample.
	refit := display.WorkParams{Target: targetOf(30, 30)}
	if !a.HasWork(0, FinalizeWork(false, refit)) {
		t.Fatal("page should have work for a new target")
	}
	drivePage(t, a, 0, FinalizeWork(false, refit))
	content, _ = a.Displayable(0, false)
	if content.Still.Res != (display.Res{W: 30, H: 24}) {
		t.Errorf("refitted res = %v, want 30x24", content.Still.Res)
	}
}

func TestUnloadShedsPixels(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page.png"), 6, 6)

	a, _ := Open(deps, dir, t.TempDir())
	defer a.Join()

	work := FinalizeWork(false, display.WorkParams{})
	drivePage(t, a, 0, work)
	if content, _ := a.Displayable(0, false); content.Kind != display.Image {
		t.Fatalf("kind = %v, want %v", content.Kind, display.Image)
	}

	a.Unload(0)
	if content, _ := a.Displayable(0, false); content.Kind != display.Pending {
		t.Fatalf("kind after unload = %v, want %v", content.Kind, display.Pending)
	}

	drivePage(t, a, 0, work)
	if content, _ := a.Displayable(0, false); content.Kind != display.Image {
		t.Errorf("kind after reload = %v, want %v", content.Kind, display.Image)
	}
}

func TestJoinRemovesTempFiles(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "book.zip")
	buildZip(t, path, map[string][]byte{"001.png": pngBytes(t, 4, 4)})

	a, _ := Open(deps, path, t.TempDir())
	a.StartExtraction()
	drivePage(t, a, 0, FinalizeWork(false, display.WorkParams{}))

	tempDir := a.tempDir
	if _, err := os.Stat(tempDir); err != nil {
		t.Fatalf("temp dir missing before join: %v", err)
	}

	a.Join()
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir still present after join: %v", err)
	}
}

func TestEarlyExtractionJumpIsOneShot(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "book.zip")
	buildZip(t, path, map[string][]byte{
		"001.png": pngBytes(t, 4, 4),
		"002.png": pngBytes(t, 4, 4),
	})

	a, _ := Open(deps, path, t.TempDir())
	defer a.Join()

	jump := a.plan.Jump
	a.QueueEarlyExtraction(1)
	if len(jump) != 1 {
		t.Fatalf("jump queue holds %d entries, want 1", len(jump))
	}
	// The slot is taken, so page 0 forfeits its attempt.
	a.QueueEarlyExtraction(0)
	if got := <-jump; got != "002.png" {
		t.Errorf("jumped page = %q, want 002.png", got)
	}
	// The attempt is spent even though the slot is free again.
	a.QueueEarlyExtraction(0)
	a.QueueEarlyExtraction(1)
	if len(jump) != 0 {
		t.Errorf("jump queue holds %d entries, want 0", len(jump))
	}
}

func TestEnvDescribesPageAndArchive(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page.png"), 4, 4)

	a, _ := Open(deps, dir, t.TempDir())
	defer a.Join()

	env := strings.Join(a.Env(0), "\n")
	for _, want := range []string{
		"RIFFLE_PAGE_NUMBER=1",
		"RIFFLE_RELATIVE_FILE_PATH=page.png",
		"RIFFLE_CURRENT_FILE=",
		"RIFFLE_ARCHIVE=",
		"RIFFLE_ARCHIVE_TYPE=directory",
	} {
		if !strings.Contains(env, want) {
			t.Errorf("env missing %q:\n%s", want, env)
		}
	}
}

func TestFileSetKeepsGivenOrder(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "c.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)

	a, initial := OpenFileSet(deps,
		[]string{filepath.Join(dir, "c.png"), filepath.Join(dir, "a.png")}, t.TempDir())
	defer a.Join()

	if a.Kind() != FileSet {
		t.Fatalf("kind = %v, want %v", a.Kind(), FileSet)
	}
	if initial != 0 {
		t.Errorf("initial = %d, want 0", initial)
	}
	got := pageNames(a)
	if len(got) != 2 || got[0] != "c.png" || got[1] != "a.png" {
		t.Errorf("pages = %v, want the given order kept", got)
	}
	if !strings.HasPrefix(a.Name(), "files in ") {
		t.Errorf("name = %q", a.Name())
	}
}
