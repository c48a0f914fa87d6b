package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"riffle/internal/display"
	"riffle/internal/ipc"
	"riffle/internal/logging"
	"riffle/internal/manager"
)

type fakeDaemon struct {
	mu        sync.Mutex
	commands  []manager.Command
	shutdowns int
}

func (f *fakeDaemon) Submit(cmd manager.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	switch cmd.Kind {
	case manager.ActionStatus:
		cmd.Reply <- manager.Reply{Env: map[string]string{
			"RIFFLE_PAGE_NUMBER": "3",
			"RIFFLE_ARCHIVE":     "/library/ch1.zip",
		}}
	case manager.ActionListPages:
		cmd.Reply <- manager.Reply{Pages: []ipc.PageInfo{
			{Name: "001.png", Path: "001.png", State: "loaded"},
			{Name: "002.png", Path: "002.png", State: "unloaded"},
		}}
	case manager.ActionExecute:
		cmd.Reply <- manager.Reply{Exec: &manager.ExecResult{Stdout: "ok\n"}}
	}
	return nil
}

func (f *fakeDaemon) SessionID() string { return "session-1" }

func (f *fakeDaemon) Shutdown() {
	f.mu.Lock()
	f.shutdowns++
	f.mu.Unlock()
}

func (f *fakeDaemon) lastCommand(t *testing.T) manager.Command {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		t.Fatal("no command submitted")
	}
	return f.commands[len(f.commands)-1]
}

func startServer(t *testing.T) (*fakeDaemon, *ipc.Client) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(t.TempDir(), "riffled.sock")
	fake := &fakeDaemon{}
	srv, err := ipc.NewServer(ctx, socket, fake, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return fake, client
}

func TestPingIdentifiesDaemon(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if resp.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), resp.PID)
	}
	if resp.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", resp.SessionID)
	}
}

func TestStatusAndPagesRoundTrip(t *testing.T) {
	_, client := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Env["RIFFLE_PAGE_NUMBER"] != "3" {
		t.Fatalf("unexpected status env: %#v", status.Env)
	}

	pages, err := client.Pages()
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if len(pages.Pages) != 2 || pages.Pages[0].Name != "001.png" || pages.Pages[1].State != "unloaded" {
		t.Fatalf("unexpected pages: %#v", pages.Pages)
	}
}

func TestMoveParsesDirection(t *testing.T) {
	fake, client := startServer(t)

	resp, err := client.Move("forwards", 2)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if !resp.Accepted {
		t.Fatal("expected move to be accepted")
	}

	cmd := fake.lastCommand(t)
	if cmd.Kind != manager.ActionMovePages || cmd.Direction != display.Forwards || cmd.Pages != 2 {
		t.Fatalf("unexpected command: %#v", cmd)
	}

	if _, err := client.Move("sideways", 1); err == nil {
		t.Fatal("expected error for unknown direction")
	}
	if _, err := client.Move("forwards", -1); err == nil {
		t.Fatal("expected error for negative page count")
	}
}

func TestModeCommandsParseArguments(t *testing.T) {
	fake, client := startServer(t)

	if _, err := client.Manga("on"); err != nil {
		t.Fatalf("Manga failed: %v", err)
	}
	if cmd := fake.lastCommand(t); cmd.Kind != manager.ActionManga || cmd.Toggle != display.On {
		t.Fatalf("unexpected manga command: %#v", cmd)
	}

	if _, err := client.Fit("height"); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if cmd := fake.lastCommand(t); cmd.Kind != manager.ActionFit || cmd.Fit != display.FitHeight {
		t.Fatalf("unexpected fit command: %#v", cmd)
	}

	if _, err := client.Resolution("1920x1080"); err != nil {
		t.Fatalf("Resolution failed: %v", err)
	}
	cmd := fake.lastCommand(t)
	if cmd.Kind != manager.ActionResolution || cmd.Res.W != 1920 || cmd.Res.H != 1080 {
		t.Fatalf("unexpected resolution command: %#v", cmd)
	}

	if _, err := client.Resolution("huge"); err == nil {
		t.Fatal("expected error for malformed resolution")
	}
}

func TestExecuteReturnsOutcome(t *testing.T) {
	fake, client := startServer(t)

	resp, err := client.Execute([]string{"true"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Stdout != "ok\n" || resp.Error != "" {
		t.Fatalf("unexpected execute response: %#v", resp)
	}
	if cmd := fake.lastCommand(t); cmd.Kind != manager.ActionExecute || len(cmd.Exec) != 1 {
		t.Fatalf("unexpected execute command: %#v", cmd)
	}

	if _, err := client.Execute(nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestShutdownSignalsController(t *testing.T) {
	fake, client := startServer(t)

	resp, err := client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping acknowledgement")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.shutdowns != 1 {
		t.Fatalf("expected one shutdown call, got %d", fake.shutdowns)
	}
}

func TestNewServerReplacesStaleSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(t.TempDir(), "riffled.sock")
	if err := os.WriteFile(socket, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv, err := ipc.NewServer(ctx, socket, &fakeDaemon{}, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	srv.Close()
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket file removed after close, got %v", err)
	}
}
