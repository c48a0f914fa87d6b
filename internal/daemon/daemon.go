package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"riffle/internal/config"
	"riffle/internal/logging"
	"riffle/internal/manager"
	"riffle/internal/session"
)

// Daemon ties one manager run to the single-instance lock and the resume
// store. It is the controller surface the IPC server drives.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	mgr       *manager.Manager
	store     *session.Store
	sessionID string

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	finished chan struct{}
	wg       sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. The store may be
// nil when session persistence is disabled, and lockPath empty to lock at
// the configured default.
func New(cfg *config.Config, mgr *manager.Manager, store *session.Store, logger *slog.Logger, sessionID, lockPath string) (*Daemon, error) {
	if cfg == nil || mgr == nil || logger == nil {
		return nil, errors.New("daemon requires config, manager, and logger")
	}

	if lockPath == "" {
		lockPath = cfg.LockPath()
	}
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		mgr:       mgr,
		store:     store,
		sessionID: sessionID,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		finished:  make(chan struct{}),
	}, nil
}

// Start acquires the daemon lock and launches the manager loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another riffled instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.persistPositions()
	}()
	go func() {
		defer close(d.finished)
		d.mgr.Run(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("riffled started",
		logging.String("session_id", d.sessionID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the manager down, waits for the position writer to drain, and
// releases the lock. Calling it on a stopped daemon is a no-op.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	<-d.finished
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("riffled stopped")
}

// Done unblocks once the run context ends, whether through a signal or a
// shutdown request over the socket.
func (d *Daemon) Done() <-chan struct{} {
	if d.ctx == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return d.ctx.Done()
}

// Submit hands a command to the manager, failing once the daemon is
// shutting down.
func (d *Daemon) Submit(cmd manager.Command) error {
	if d.ctx == nil {
		return errors.New("daemon is not running")
	}
	if d.ctx.Err() != nil {
		return errors.New("daemon is shutting down")
	}
	select {
	case d.mgr.Commands() <- cmd:
		return nil
	case <-d.ctx.Done():
		return errors.New("daemon is shutting down")
	}
}

// SessionID identifies this daemon run.
func (d *Daemon) SessionID() string { return d.sessionID }

// Shutdown asks the daemon to stop. It returns without waiting; Stop does
// the teardown.
func (d *Daemon) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
}

// persistPositions mirrors every position change into the session store.
// It also keeps the snapshot channel drained when persistence is off so
// the manager never blocks on a send.
func (d *Daemon) persistPositions() {
	var last session.Entry
	for snap := range d.mgr.Snapshots() {
		if d.store == nil || snap.ArchivePath == "" || snap.PageNumber == 0 {
			continue
		}
		entry := session.Entry{
			ArchivePath: snap.ArchivePath,
			PageIndex:   snap.PageNumber - 1,
			PageName:    snap.PageName,
			Manga:       snap.Modes.Manga,
			Upscaling:   snap.Modes.Upscaling,
			Fit:         snap.Modes.Fit.String(),
			DisplayMode: snap.Modes.Display.String(),
		}
		if entry == last {
			continue
		}
		if err := d.store.Save(context.Background(), entry); err != nil {
			d.logger.Warn("failed to persist position",
				logging.String(logging.FieldArchive, entry.ArchivePath), logging.Error(err))
			continue
		}
		last = entry
	}
}
