package manager

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"riffle/internal/archive"
	"riffle/internal/config"
	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/logging"
	"riffle/internal/pools"
	"riffle/internal/proc"
)

// lane is one scheduling category. Each lane owns a cursor into the
// archive window and a kind of work it tries to advance there.
type lane int

const (
	laneCurrent lane = iota
	laneFinalize
	laneDownscale
	laneLoad
	laneUpscale
	laneScan
)

// laneOrder is the strict priority order work is attempted in. The current
// page always wins, then the lanes that finish nearly-done pages before the
// ones that start new ones.
var laneOrder = [...]lane{laneCurrent, laneFinalize, laneDownscale, laneLoad, laneUpscale, laneScan}

func (l lane) String() string {
	switch l {
	case laneCurrent:
		return "current"
	case laneFinalize:
		return "finalize"
	case laneDownscale:
		return "downscale"
	case laneLoad:
		return "load"
	case laneUpscale:
		return "upscale"
	case laneScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Options carries the startup state the daemon resolved from the command
// line and the session store.
type Options struct {
	// Files is what the user asked to open: one archive path, one page
	// file, or several page files forming an ad-hoc set.
	Files []string
	// FileSet forces treating Files as a page set even for one entry.
	FileSet bool
	// SocketPath and SessionID are exported to executed commands.
	SocketPath string
	SessionID  string
}

// Manager owns the window of open archives and drives every page in the
// preload range toward displayability. All state is confined to the
// goroutine running Run; the outside world talks to it through Commands
// and listens on Snapshots.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   *archive.Deps
	runner proc.Runner

	tempDir    string
	socketPath string
	sessionID  string

	commands  chan Command
	snapshots chan display.Snapshot
	last      display.Snapshot
	sentFirst bool

	win    *window
	target display.Res
	min    display.Res
	modes  display.Modes

	current   pageIndices
	finalize  *pageIndices
	downscale *pageIndices
	load      *pageIndices
	upscale   *pageIndices
	scan      *pageIndices

	joins sync.WaitGroup
}

// New opens the initial archive and prepares the manager. The caller owns
// the pools; the manager owns its temp directory and the archives it opens.
func New(cfg *config.Config, pls *pools.Pools, runner proc.Runner, logger *slog.Logger, opts Options) (*Manager, error) {
	if len(opts.Files) == 0 {
		return nil, errors.New("nothing to open")
	}
	if runner == nil {
		runner = proc.CommandRunner{}
	}
	log := logging.NewComponentLogger(logger, "manager")

	tempDir, err := os.MkdirTemp(cfg.Paths.TempDir, "riffle-")
	if err != nil {
		return nil, err
	}
	deps := &archive.Deps{Pools: pls, Logger: log}

	var a *archive.Archive
	var p int
	switch {
	case opts.FileSet || (len(opts.Files) > 1 && files.IsSupportedPage(opts.Files[0])):
		a, p = archive.OpenFileSet(deps, opts.Files, tempDir)
	case len(opts.Files) == 1:
		a, p = archive.Open(deps, opts.Files[0], tempDir)
	default:
		os.RemoveAll(tempDir)
		return nil, errors.New("opening multiple archives at once is unsupported")
	}
	a.QueueEarlyExtraction(p)

	target := cfg.TargetRes()
	m := &Manager{
		cfg:        cfg,
		logger:     log,
		deps:       deps,
		runner:     runner,
		tempDir:    tempDir,
		socketPath: opts.SocketPath,
		sessionID:  opts.SessionID,
		commands:   make(chan Command, 16),
		snapshots:  make(chan display.Snapshot, 16),
		win:        &window{archives: []*archive.Archive{a}},
		target:     target.Res,
		min:        target.Min,
		modes:      cfg.StartModes(),
		current:    pageIndices{a: 0, p: p},
	}
	m.resetIndices()
	return m, nil
}

// Commands is the channel the socket layer feeds. Sends may block briefly
// while the manager is mid-step but are always drained.
func (m *Manager) Commands() chan<- Command { return m.commands }

// Snapshots emits one value per externally visible state change. The
// channel closes once the manager has shut down.
func (m *Manager) Snapshots() <-chan display.Snapshot { return m.snapshots }

// Run drives the pipeline until ctx is cancelled, then tears down every
// archive and the temp directory before returning.
func (m *Manager) Run(ctx context.Context) {
	idleTimeout := m.cfg.IdleTimeout()
	idle := false

	m.maybeOpenNewArchives()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case cmd := <-m.commands:
			m.handleCommand(cmd)
			if idle {
				m.resetIndices()
				idle = false
			}
			continue
		default:
		}

		m.maybeSendSnapshot()
		m.findNextWork()
		m.startExtractions()

		progressed, waits, anyWork := m.attemptLanes()
		if progressed {
			continue
		}

		// Nothing can advance without an external event: a command, a
		// settling job, or the idle timer.
		var idleTimer *time.Timer
		var idleC <-chan time.Time
		if !anyWork && !idle && idleTimeout > 0 {
			idleTimer = time.NewTimer(idleTimeout)
			idleC = idleTimer.C
		}
		ws := waitChans(waits)

		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case cmd := <-m.commands:
			m.handleCommand(cmd)
			if idle {
				m.resetIndices()
				idle = false
			}
		case <-ws[0]:
		case <-ws[1]:
		case <-ws[2]:
		case <-ws[3]:
		case <-ws[4]:
		case <-ws[5]:
		case <-idleC:
			idle = true
			m.idleUnload()
		}
		if idleTimer != nil {
			idleTimer.Stop()
		}
	}
}

// waitChans spreads the collected wait channels over fixed select arms.
// There is at most one in-flight wait per lane; missing entries stay nil
// and never fire.
func waitChans(waits []<-chan struct{}) [6]<-chan struct{} {
	var out [6]<-chan struct{}
	copy(out[:], waits)
	return out
}

// attemptLanes tries each lane once in priority order. It reports whether
// any lane made synchronous progress, the wait channels of lanes with
// units in flight, and whether any lane has work at all.
func (m *Manager) attemptLanes() (bool, []<-chan struct{}, bool) {
	currentBusy := m.laneHasWork(laneCurrent)
	anyWork := currentBusy

	var waits []<-chan struct{}
	for _, l := range laneOrder {
		pi := m.laneCursor(l)
		if pi == nil || pi.empty() {
			continue
		}
		work := m.laneWork(l, l != laneCurrent && currentBusy)
		a := m.win.archive(*pi)
		if !a.HasWork(pi.p, work) {
			continue
		}
		anyWork = true

		progress, wait := a.Step(pi.p, work)
		switch progress {
		case archive.Parked:
		case archive.Waiting:
			if wait != nil {
				waits = append(waits, wait)
			}
		default:
			return true, nil, true
		}
	}
	return false, waits, anyWork
}

// findNextWork advances each background lane cursor to the first slot in
// its preload range that still has work. A lane that finds nothing is
// disabled until the next resetIndices; pages unloaded while idle stay
// unloaded instead of being reloaded by their own lane.
func (m *Manager) findNextWork() {
	for _, l := range [...]lane{laneFinalize, laneDownscale, laneLoad, laneUpscale, laneScan} {
		if m.laneCursor(l) == nil {
			continue
		}
		work := m.laneWork(l, false)
		behind, ahead := m.rangeFor(l)

		var rng []pageIndices
		if m.modes.Manga {
			rng = m.win.wrappingRange(m.current, behind, ahead)
		} else {
			rng = m.win.wrappingRangeInArchive(m.current, behind, ahead)
		}

		found := false
		for _, pi := range rng {
			if pi.empty() {
				continue
			}
			if m.win.archive(pi).HasWork(pi.p, work) {
				cursor := pi
				m.setLaneCursor(l, &cursor)
				found = true
				break
			}
		}
		if !found {
			m.setLaneCursor(l, nil)
		}
	}
}

func (m *Manager) laneCursor(l lane) *pageIndices {
	switch l {
	case laneCurrent:
		return &m.current
	case laneFinalize:
		return m.finalize
	case laneDownscale:
		return m.downscale
	case laneLoad:
		return m.load
	case laneUpscale:
		return m.upscale
	case laneScan:
		return m.scan
	default:
		panic("unknown lane")
	}
}

func (m *Manager) setLaneCursor(l lane, pi *pageIndices) {
	switch l {
	case laneFinalize:
		m.finalize = pi
	case laneDownscale:
		m.downscale = pi
	case laneLoad:
		m.load = pi
	case laneUpscale:
		m.upscale = pi
	case laneScan:
		m.scan = pi
	default:
		panic("cannot reassign the " + l.String() + " lane")
	}
}

func (m *Manager) laneCursors() [5]*pageIndices {
	return [5]*pageIndices{m.finalize, m.downscale, m.load, m.upscale, m.scan}
}

func (m *Manager) laneHasWork(l lane) bool {
	pi := m.laneCursor(l)
	if pi == nil || pi.empty() {
		return false
	}
	return m.win.archive(*pi).HasWork(pi.p, m.laneWork(l, false))
}

// laneWork builds the work description for one lane. parkBackground defers
// background scaling while the current page still has work of its own.
func (m *Manager) laneWork(l lane, parkBackground bool) archive.Work {
	t := m.targetRes()
	switch l {
	case laneCurrent:
		return archive.FinalizeWork(m.modes.Upscaling, display.WorkParams{
			JumpDownscalingQueue: true,
			ExtractEarly:         true,
			Target:               t,
		})
	case laneFinalize:
		return archive.FinalizeWork(m.modes.Upscaling, display.WorkParams{
			ParkBeforeScale: parkBackground,
			Target:          t,
		})
	case laneDownscale:
		return archive.DownscaleWork(m.modes.Upscaling, display.WorkParams{
			ParkBeforeScale: parkBackground,
			Target:          t,
		})
	case laneLoad:
		return archive.LoadWork(m.modes.Upscaling, display.WorkParams{
			ParkBeforeScale: parkBackground,
			Target:          t,
		})
	case laneUpscale:
		return archive.UpscaleWork(t)
	case laneScan:
		return archive.ScanWork(t)
	default:
		panic("unknown lane")
	}
}

func (m *Manager) targetRes() display.TargetRes {
	return display.TargetRes{Res: m.target, Fit: m.modes.Fit, Min: m.min}.ForMode(m.modes.Display)
}

// rangeFor returns the preload reach of one lane in pages behind and ahead
// of the current slot. Upscaling and scanning run further ahead so slow
// external upscalers start early enough to keep up with reading speed.
func (m *Manager) rangeFor(l lane) (behind, ahead int) {
	behind = m.cfg.Preload.Behind
	ahead = m.cfg.Preload.Ahead
	switch l {
	case laneUpscale, laneScan:
		if m.cfg.Preload.Prescale > ahead {
			ahead = m.cfg.Preload.Prescale
		}
	}
	return behind, ahead
}

// reachRange is the widest lane range, which bounds how far sibling
// archives are opened ahead and how aggressively stale ones are closed.
func (m *Manager) reachRange() (behind, ahead int) {
	return m.rangeFor(laneScan)
}

// startExtractions nudges the extraction of every archive a cursor points
// at. Archives start extracting lazily so a shutdown right after startup
// does not wait on a full unpack.
func (m *Manager) startExtractions() {
	m.win.archive(m.current).StartExtraction()
	for _, c := range m.laneCursors() {
		if c != nil {
			m.win.archive(*c).StartExtraction()
		}
	}
}

func (m *Manager) snapshot() display.Snapshot {
	a := m.win.archive(m.current)
	content, name := a.Displayable(m.current.p, m.modes.Upscaling)
	return display.Snapshot{
		Content:     content,
		PageNumber:  m.current.p + 1,
		PageCount:   a.PageCount(),
		PageName:    name,
		ArchiveName: a.Name(),
		ArchivePath: a.Path(),
		ArchiveLen:  m.win.len(),
		Modes:       m.modes,
		Target:      m.targetRes(),
	}
}

// maybeSendSnapshot publishes the current state if it changed since the
// last send. The channel is buffered; a slow consumer applies backpressure
// rather than losing updates.
func (m *Manager) maybeSendSnapshot() {
	s := m.snapshot()
	if m.sentFirst && s == m.last {
		return
	}
	m.last = s
	m.sentFirst = true
	m.snapshots <- s
}

// idleUnload drops loaded images outside the immediate neighborhood of the
// current page after a quiet period. Dual page modes keep one extra
// neighbor on each side.
func (m *Manager) idleUnload() {
	m.logger.Debug("idle, unloading distant pages")

	keep := 1
	if m.modes.Display == display.DualPage || m.modes.Display == display.DualPageReversed {
		keep = 2
	}

	behind, ahead := m.rangeFor(laneLoad)
	pi := m.current
	for i := 1; i <= behind; i++ {
		next, ok := m.win.sub(pi, 1)
		if !ok {
			break
		}
		pi = next
		if i > keep && !pi.empty() {
			m.win.archive(pi).Unload(pi.p)
		}
	}
	pi = m.current
	for i := 1; i <= ahead; i++ {
		next, ok := m.win.add(pi, 1)
		if !ok {
			break
		}
		pi = next
		if i > keep && !pi.empty() {
			m.win.archive(pi).Unload(pi.p)
		}
	}
}

// closeArchive joins a popped archive off the manager goroutine so paging
// never stalls on temp file removal.
func (m *Manager) closeArchive(a *archive.Archive) {
	m.logger.Debug("closing archive", logging.String(logging.FieldArchive, a.Name()))
	m.joins.Add(1)
	go func() {
		defer m.joins.Done()
		a.Join()
	}()
}

func (m *Manager) shutdown() {
	for _, a := range m.win.archives {
		a.Join()
	}
	m.win.archives = nil
	m.joins.Wait()
	if err := os.RemoveAll(m.tempDir); err != nil {
		m.logger.Warn("failed to remove temp dir",
			logging.String("path", m.tempDir), logging.Error(err))
	}
	close(m.snapshots)
	m.logger.Debug("manager stopped")
}
