package daemon

import (
	"bytes"
	"context"
	"fmt"
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
	"riffle/internal/manager"
	"riffle/internal/pools"
	"riffle/internal/session"
)

const persistTimeout = 10 * time.Second

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.SocketDir = filepath.Join(base, "run")
	cfg.Session.Enabled = true
	cfg.Session.Path = filepath.Join(base, "session.db")
	cfg.Loading.Threads = 2
	cfg.Downscaling.Threads = 1
	cfg.Downscaling.BackgroundJobs = 1
	cfg.Extraction.Threads = 2
	return &cfg
}

func writePages(t *testing.T, count int) string {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode page: %v", err)
	}
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("page-%02d.png", i+1)
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write page: %v", err)
		}
	}
	return dir
}

func newTestDaemon(t *testing.T, cfg *config.Config, store *session.Store, archiveDir string) *Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	logger := logging.NewNop()
	pls := pools.New(context.Background(), cfg, nil, logger)
	t.Cleanup(pls.Close)

	mgr, err := manager.New(cfg, pls, nil, logger, manager.Options{Files: []string{archiveDir}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	d, err := New(cfg, mgr, store, logger, "session-test", "")
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestStartRejectsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	dir := writePages(t, 3)

	first := newTestDaemon(t, cfg, nil, dir)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}
	t.Cleanup(first.Stop)

	second := newTestDaemon(t, cfg, nil, dir)
	err := second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPersistsPositionsToStore(t *testing.T) {
	cfg := testConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	dir := writePages(t, 3)

	d := newTestDaemon(t, cfg, store, dir)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Submit(manager.Command{Kind: manager.ActionMovePages, Direction: display.Absolute, Pages: 3}); err != nil {
		t.Fatalf("submit move: %v", err)
	}

	deadline := time.Now().Add(persistTimeout)
	key := resumeKey(dir)
	for {
		entry, err := store.Lookup(context.Background(), key)
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if entry != nil && entry.PageIndex == 2 {
			if entry.PageName != "page-03.png" {
				t.Fatalf("PageName = %q, want page-03.png", entry.PageName)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("position never persisted, last entry %+v", entry)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSubmitLifecycle(t *testing.T) {
	cfg := testConfig(t)
	dir := writePages(t, 2)
	d := newTestDaemon(t, cfg, nil, dir)

	if err := d.Submit(manager.Command{Kind: manager.ActionStatus}); err == nil {
		t.Fatal("expected submit before start to fail")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	if err := d.Submit(manager.Command{Kind: manager.ActionNextArchive}); err != nil {
		t.Fatalf("submit while running: %v", err)
	}

	d.Stop()
	if err := d.Submit(manager.Command{Kind: manager.ActionStatus}); err == nil {
		t.Fatal("expected submit after stop to fail")
	}
}

func TestShutdownUnblocksDone(t *testing.T) {
	cfg := testConfig(t)
	dir := writePages(t, 2)
	d := newTestDaemon(t, cfg, nil, dir)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	d.Shutdown()
	select {
	case <-d.Done():
	case <-time.After(persistTimeout):
		t.Fatal("Done never unblocked after Shutdown")
	}
}

func TestStartingPageExplicitRequestWins(t *testing.T) {
	cfg := testConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	dir := writePages(t, 3)

	entry := session.Entry{ArchivePath: resumeKey(dir), PageIndex: 1}
	if err := store.Save(context.Background(), entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	page := startingPage(context.Background(), store, Options{Page: 7}, []string{dir}, logging.NewNop())
	if page != 7 {
		t.Fatalf("startingPage = %d, want 7", page)
	}
}

func TestStartingPageRestoresStoredPosition(t *testing.T) {
	cfg := testConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	dir := writePages(t, 5)

	entry := session.Entry{ArchivePath: resumeKey(dir), PageIndex: 4, PageName: "page-05.png"}
	if err := store.Save(context.Background(), entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	page := startingPage(context.Background(), store, Options{}, []string{dir}, logging.NewNop())
	if page != 5 {
		t.Fatalf("startingPage = %d, want 5", page)
	}
}

func TestStartingPageSkipsFirstPageEntries(t *testing.T) {
	cfg := testConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	dir := writePages(t, 3)

	entry := session.Entry{ArchivePath: resumeKey(dir), PageIndex: 0}
	if err := store.Save(context.Background(), entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	if page := startingPage(context.Background(), store, Options{}, []string{dir}, logging.NewNop()); page != 0 {
		t.Fatalf("startingPage = %d, want 0", page)
	}
}

func TestStartingPageIgnoresFileSets(t *testing.T) {
	cfg := testConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	dir := writePages(t, 3)

	entry := session.Entry{ArchivePath: dir, PageIndex: 2}
	if err := store.Save(context.Background(), entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	if page := startingPage(context.Background(), store, Options{FileSet: true}, []string{dir}, logging.NewNop()); page != 0 {
		t.Fatalf("startingPage = %d, want 0", page)
	}
}

func TestStartingPageWithoutStore(t *testing.T) {
	dir := writePages(t, 3)
	if page := startingPage(context.Background(), nil, Options{}, []string{dir}, logging.NewNop()); page != 0 {
		t.Fatalf("startingPage = %d, want 0", page)
	}
}

func TestResumeKey(t *testing.T) {
	dir := writePages(t, 1)
	archivePath := filepath.Join(t.TempDir(), "volume.cbz")
	if err := os.WriteFile(archivePath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write archive stub: %v", err)
	}
	resolve := func(p string) string {
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
		return resolved
	}

	if got, want := resumeKey(dir), resolve(dir); got != want {
		t.Fatalf("resumeKey(dir) = %q, want %q", got, want)
	}
	if got, want := resumeKey(archivePath), resolve(archivePath); got != want {
		t.Fatalf("resumeKey(archive) = %q, want %q", got, want)
	}
	if got := resumeKey(filepath.Join(dir, "page-01.png")); got != "" {
		t.Fatalf("resumeKey(page) = %q, want empty", got)
	}
	if got := resumeKey(filepath.Join(dir, "missing.png")); got != "" {
		t.Fatalf("resumeKey(missing) = %q, want empty", got)
	}
}
