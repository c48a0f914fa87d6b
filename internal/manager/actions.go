package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"riffle/internal/archive"
	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/natsort"
	"riffle/internal/proc"
)

func (m *Manager) handleCommand(cmd Command) {
	m.logger.Debug("handling command", logging.String("action", cmd.Kind.String()))

	switch cmd.Kind {
	case ActionMovePages:
		m.movePages(cmd.Direction, cmd.Pages)
	case ActionNextArchive:
		m.moveNextArchive()
	case ActionPreviousArchive:
		m.movePreviousArchive()
	case ActionResolution:
		m.target = cmd.Res
		m.resetIndices()
	case ActionManga:
		if v, changed := cmd.Toggle.Apply(m.modes.Manga); changed {
			m.modes.Manga = v
			m.resetIndices()
			m.maybeOpenNewArchives()
		}
	case ActionUpscaling:
		v, changed := cmd.Toggle.Apply(m.modes.Upscaling)
		if !changed {
			return
		}
		if v && !m.cfg.UpscalingAvailable() {
			m.logger.Warn("upscaling requested but no upscaler is configured")
			return
		}
		m.modes.Upscaling = v
		m.resetIndices()
		m.maybeOpenNewArchives()
	case ActionFit:
		m.modes.Fit = cmd.Fit
		m.resetIndices()
	case ActionDisplayMode:
		// Dual modes halve the per-page fit target, so a mode change can
		// invalidate finished scales the same way a resolution change does.
		m.modes.Display = cmd.Mode
		m.resetIndices()
	case ActionStatus:
		m.replyStatus(cmd.Reply)
	case ActionListPages:
		m.replyPages(cmd.Reply)
	case ActionExecute:
		m.execute(cmd.Exec, cmd.Reply)
	}
}

// movePages moves the current page n pages in the given direction. Outside
// manga mode movement clamps at the current archive's bounds. In manga mode
// it crosses into already open neighbors and opens sibling archives on
// demand until the move lands or no further sibling exists, then clamps at
// whatever the window ends at.
func (m *Manager) movePages(d display.Direction, n int) {
	if n < 0 {
		n = 0
	}
	if !m.modes.Manga {
		m.setCurrentPage(m.win.moveClampedInArchive(m.current, d, n))
		return
	}

	sorter := natsort.NewChapterSorter()
	for {
		if pi, ok := m.win.tryMovePages(m.current, d, n); ok {
			m.setCurrentPage(pi)
			return
		}
		if !m.openNextArchive(d, sorter) {
			m.setCurrentPage(m.win.moveClamped(m.current, d, n))
			return
		}
	}
}

// moveNextArchive jumps to the first page of the next open archive,
// opening a sibling when the current archive is the last one. A no-op at
// the end of the final chain.
func (m *Manager) moveNextArchive() {
	if m.current.a == m.win.len()-1 && !m.openNextArchive(display.Forwards, nil) {
		return
	}
	m.setCurrentPage(m.win.landing(m.current.a + 1))
}

// movePreviousArchive is moveNextArchive's mirror. Opening a sibling at the
// front renumbers every cursor, so the current archive index is re-read
// afterwards.
func (m *Manager) movePreviousArchive() {
	if m.current.a == 0 && !m.openNextArchive(display.Backwards, nil) {
		return
	}
	m.setCurrentPage(m.win.landing(m.current.a - 1))
}

func (m *Manager) setCurrentPage(pi pageIndices) {
	if pi == m.current {
		m.resetIndices()
		return
	}
	old := m.current
	m.current = pi
	m.resetIndices()
	m.cleanupAfterMove(old)
}

// resetIndices re-arms every lane at the current page. Lanes whose work is
// already done will park themselves again on the next pass.
func (m *Manager) resetIndices() {
	f, d, l, s := m.current, m.current, m.current, m.current
	m.finalize, m.downscale, m.load, m.scan = &f, &d, &l, &s
	if m.modes.Upscaling {
		u := m.current
		m.upscale = &u
	} else {
		m.upscale = nil
	}
}

// chainable reports whether sibling archives can continue the window from
// an archive of this kind. Ad-hoc file sets have no meaningful siblings
// and broken archives have no usable ordering.
func chainable(k archive.Kind) bool {
	return k == archive.Directory || k == archive.Compressed
}

// openNextArchive extends the window with the sibling adjacent to its edge
// archive in the given direction. Passing a nil sorter builds a fresh one;
// callers moving many archives in one command share theirs.
func (m *Manager) openNextArchive(d display.Direction, sorter *natsort.ChapterSorter) bool {
	var edge pageIndices
	switch d {
	case display.Forwards:
		edge = m.win.last()
	case display.Backwards:
		edge = m.win.first()
	default:
		panic("can only open archives forwards or backwards")
	}

	a := m.win.archive(edge)
	if !chainable(a.Kind()) {
		return false
	}
	if sorter == nil {
		sorter = natsort.NewChapterSorter()
	}

	next, ok := nextArchivePath(a.Path(), d, sorter)
	if !ok {
		return false
	}
	m.logger.Debug("opening sibling archive",
		logging.String(logging.FieldArchive, next),
		logging.String("direction", d.String()))

	na, _ := archive.Open(m.deps, next, m.tempDir)
	if d == display.Forwards {
		m.win.pushBack(na)
	} else {
		m.win.pushFront(na)
		m.incrementArchiveIndices()
	}
	return true
}

// cleanupAfterMove unloads the pages that fell out of the preload window
// and adjusts which archives stay open.
func (m *Manager) cleanupAfterMove(old pageIndices) {
	behind, ahead := m.rangeFor(laneLoad)
	for _, pi := range m.win.diffRange(old, m.current, behind, ahead) {
		if !pi.empty() {
			m.win.archive(pi).Unload(pi.p)
		}
	}
	m.maybeOpenNewArchives()
	m.cleanupUnusedArchives()
}

// maybeOpenNewArchives opens sibling archives when the preload range runs
// off either end of the window in manga mode. The pending snapshot goes
// out first so the reader is not stuck on a stale page while a cold
// directory is scanned.
func (m *Manager) maybeOpenNewArchives() {
	if !m.modes.Manga {
		return
	}
	m.maybeSendSnapshot()

	behind, ahead := m.reachRange()
	if _, ok := m.win.add(m.current, ahead); !ok {
		m.openNextArchive(display.Forwards, nil)
	}
	if _, ok := m.win.sub(m.current, behind); !ok {
		m.openNextArchive(display.Backwards, nil)
	}
}

// cleanupUnusedArchives closes archives no preload range can reach
// anymore. Closing joins in the background; the window only shrinks from
// its ends so cursors stay inside it.
func (m *Manager) cleanupUnusedArchives() {
	behind, ahead := m.reachRange()

	startA := m.win.moveClamped(m.current, display.Backwards, behind).a
	for startA > 0 {
		m.closeArchive(m.win.popFront())
		m.decrementArchiveIndices()
		startA--
	}

	endA := m.win.moveClamped(m.current, display.Forwards, ahead).a
	for endA < m.win.len()-1 {
		m.closeArchive(m.win.popBack())
	}
}

// incrementArchiveIndices renumbers every cursor after an archive is
// inserted at the front of the window.
func (m *Manager) incrementArchiveIndices() {
	m.current.a++
	for _, c := range m.laneCursors() {
		if c != nil {
			c.a++
		}
	}
}

// decrementArchiveIndices renumbers every cursor after the front archive
// is removed. Cursors must already have moved off it.
func (m *Manager) decrementArchiveIndices() {
	if m.current.a == 0 {
		panic("current page renumbered off the front of the window")
	}
	m.current.a--
	for _, c := range m.laneCursors() {
		if c == nil {
			continue
		}
		if c.a == 0 {
			panic("lane cursor renumbered off the front of the window")
		}
		c.a--
	}
}

// commandEnv is the environment exported to executed commands and status
// queries: the current page's archive environment plus the daemon's own
// state.
func (m *Manager) commandEnv() []string {
	env := m.win.archive(m.current).Env(m.current.p)
	env = append(env,
		fmt.Sprintf("RIFFLE_PID=%d", os.Getpid()),
		"RIFFLE_DISPLAY_MODE="+m.modes.Display.String(),
		"RIFFLE_FIT_MODE="+m.modes.Fit.String(),
		fmt.Sprintf("RIFFLE_MANGA_MODE=%t", m.modes.Manga),
		fmt.Sprintf("RIFFLE_UPSCALING_ENABLED=%t", m.modes.Upscaling),
	)
	if m.socketPath != "" {
		env = append(env, "RIFFLE_SOCKET="+m.socketPath)
	}
	if m.sessionID != "" {
		env = append(env, "RIFFLE_SESSION_ID="+m.sessionID)
	}
	return env
}

func (m *Manager) replyStatus(reply chan<- Reply) {
	env := m.commandEnv()
	status := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		status[k] = v
	}
	sendReply(reply, Reply{Env: status})
}

func (m *Manager) replyPages(reply chan<- Reply) {
	sendReply(reply, Reply{Pages: m.win.archive(m.current).Pages()})
}

// execute launches an external command with the manager environment and
// replies once it finishes. The command runs detached from the manager
// loop but shutdown still waits for it.
func (m *Manager) execute(argv []string, reply chan<- Reply) {
	if len(argv) == 0 {
		sendReply(reply, Reply{Exec: &ExecResult{Error: "no command given"}})
		return
	}
	spec := proc.Spec{Binary: argv[0], Args: argv[1:], Env: m.commandEnv()}
	runner := m.runner
	logger := m.logger

	m.joins.Add(1)
	go func() {
		defer m.joins.Done()

		stdout, stderr, err := runner.Output(context.Background(), spec)
		res := &ExecResult{
			Stdout: string(stdout),
			Stderr: string(stderr),
		}
		if err == nil {
			sendReply(reply, Reply{Exec: res})
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Error = fmt.Sprintf("executable %s exited with an error: %v", argv[0], exitErr.ProcessState)
		} else {
			res.Error = fmt.Sprintf("executable %s failed to start: %v", argv[0], err)
		}
		logger.Error("external command failed",
			logging.String("binary", argv[0]), logging.Error(err))
		sendReply(reply, Reply{Exec: res})
	}()
}
