package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"riffle/internal/config"
	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/ipc"
	"riffle/internal/logging"
	"riffle/internal/manager"
	"riffle/internal/pools"
	"riffle/internal/preflight"
	"riffle/internal/session"
)

// sessionRetention is how long unvisited archive positions survive before
// startup pruning discards them.
const sessionRetention = 180 * 24 * time.Hour

// Options carries what the command line resolved for one daemon run.
type Options struct {
	// Files are the archives, directories, or page files to open.
	Files []string
	// FileSet treats Files as a single ad-hoc page set.
	FileSet bool
	// Page is the 1-based page to show first. Zero means resume from the
	// session store when enabled, otherwise start at the first page.
	Page int
	// Socket overrides the configured control socket path. The lock and
	// pid files follow the socket's directory, so pointing two daemons at
	// different directories lets them coexist.
	Socket string
}

// Run wires up and runs the daemon until a signal or a shutdown request
// over the socket arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if len(opts.Files) == 0 {
		return errors.New("nothing to open")
	}

	signalCtx, stop := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	absFiles, err := absolutePaths(opts.Files)
	if err != nil {
		return err
	}

	socketPath := cfg.SocketPath()
	if s := strings.TrimSpace(opts.Socket); s != "" {
		socketPath = s
	}
	socketDir := filepath.Dir(socketPath)
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return fmt.Errorf("create socket directory %q: %w", socketDir, err)
	}

	sessionID := uuid.NewString()
	logger.Info("riffled starting",
		logging.String("session_id", sessionID),
		logging.Int("pid", os.Getpid()),
		logging.String("socket", socketPath),
		logging.Int("files", len(absFiles)))

	if err := runPreflight(cfg, logger); err != nil {
		return err
	}

	pidPath := filepath.Join(socketDir, "riffled.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var store *session.Store
	if cfg.Session.Enabled {
		store, err = session.Open(cfg)
		if err != nil {
			logger.Warn("session store unavailable, positions will not persist", logging.Error(err))
			store = nil
		} else {
			defer store.Close()
			pruneSessions(signalCtx, store, logger)
		}
	}

	pls := pools.New(signalCtx, cfg, nil, logger)
	defer pls.Close()

	mgr, err := manager.New(cfg, pls, nil, logger, manager.Options{
		Files:      absFiles,
		FileSet:    opts.FileSet,
		SocketPath: socketPath,
		SessionID:  sessionID,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", absFiles[0], err)
	}

	d, err := New(cfg, mgr, store, logger, sessionID, filepath.Join(socketDir, "riffled.lock"))
	if err != nil {
		return err
	}
	defer d.Stop()

	// Queue the starting position before the manager loop runs so the
	// first visible page is already the restored one.
	if page := startingPage(signalCtx, store, opts, absFiles, logger); page > 0 {
		mgr.Commands() <- manager.Command{
			Kind:      manager.ActionMovePages,
			Direction: display.Absolute,
			Pages:     page,
		}
	}

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-d.Done()
	logger.Info("riffled shutting down")
	return nil
}

// startingPage decides the first page to show. An explicit request wins;
// otherwise the stored position for the opened archive is restored when
// the session store is available.
func startingPage(ctx context.Context, store *session.Store, opts Options, files []string, logger *slog.Logger) int {
	if opts.Page > 0 {
		return opts.Page
	}
	if store == nil || opts.FileSet || len(files) != 1 {
		return 0
	}
	key := resumeKey(files[0])
	if key == "" {
		return 0
	}
	entry, err := store.Lookup(ctx, key)
	if err != nil {
		logger.Warn("session lookup failed", logging.Error(err))
		return 0
	}
	if entry == nil || entry.PageIndex <= 0 {
		return 0
	}
	logger.Info("resuming stored position",
		logging.String(logging.FieldArchive, filepath.Base(key)),
		logging.Int("page_number", entry.PageIndex+1))
	return entry.PageIndex + 1
}

// resumeKey maps an opened path to the archive path snapshots will carry,
// resolving symlinks the same way opening does so stored positions match.
// Page files return nothing: opening a specific page is already an
// explicit position request.
func resumeKey(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return resolved
	}
	if files.IsArchive(resolved) {
		return resolved
	}
	return ""
}

func runPreflight(cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(cfg)
	for _, res := range results {
		switch {
		case !res.Passed:
			logger.Error("preflight check failed",
				logging.String("check", res.Name), logging.String("detail", res.Detail))
		case res.Warning:
			logger.Warn("preflight warning",
				logging.String("check", res.Name), logging.String("detail", res.Detail))
		default:
			logger.Debug("preflight check passed",
				logging.String("check", res.Name), logging.String("detail", res.Detail))
		}
	}

	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, res := range failed {
		names[i] = res.Name
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(names, ", "))
}

func pruneSessions(ctx context.Context, store *session.Store, logger *slog.Logger) {
	dropped, err := store.Prune(ctx, time.Now().Add(-sessionRetention))
	if err != nil {
		logger.Warn("failed to prune session store", logging.Error(err))
		return
	}
	if dropped > 0 {
		logger.Debug("pruned stale session entries", logging.Int64("dropped", dropped))
	}
}

func absolutePaths(paths []string) ([]string, error) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		resolved, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", p, err)
		}
		abs[i] = resolved
	}
	return abs, nil
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
