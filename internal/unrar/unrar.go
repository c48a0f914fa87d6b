// Package unrar wraps the external unrar binary. The Go rar decoder cannot
// stream solid archives front to back, so when the user allows external
// extractors the pipeline drives unrar's pipe mode instead.
package unrar

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"sync"

	"riffle/internal/proc"
)

var available = sync.OnceValue(func() bool {
	// Probe only: a nonzero exit still proves the binary is spawnable.
	err := exec.Command("unrar").Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
})

// Available reports whether the unrar binary can be spawned. The probe runs
// once per process.
func Available() bool {
	return available()
}

var fileLineRE = regexp.MustCompile(`^ *[^ ]+ +(\d+) +[^ ]+ +[^ ]+ +(.*)$`)

// Entry is a single member of a rar archive in listing order.
type Entry struct {
	Name string
	Size int64
}

// List returns the archive members in the order unrar will emit them.
func List(ctx context.Context, runner proc.Runner, archive string) ([]Entry, error) {
	out, err := runner.Capture(ctx, proc.Spec{
		Binary: "unrar",
		Args:   []string{"l", "--", archive},
	})
	if err != nil {
		return nil, fmt.Errorf("list rar archive: %w", err)
	}
	return parseListing(out), nil
}

func parseListing(out []byte) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		match := fileLineRE.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		size, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: match[2], Size: size})
	}
	return entries
}

// Extract pulls a single named member out of the archive. Used when the
// current page needs to jump ahead of the sequential stream.
func Extract(ctx context.Context, runner proc.Runner, archive, name string) ([]byte, error) {
	data, err := runner.Capture(ctx, proc.Spec{
		Binary: "unrar",
		Args:   []string{"p", "-inul", "--", archive, name},
	})
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", name, err)
	}
	return data, nil
}

// Stream reads every archive member's bytes concatenated in listing order.
// Callers split the stream using the sizes from List.
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// OpenStream starts unrar in pipe mode over the whole archive.
func OpenStream(archive string) (*Stream, error) {
	cmd := exec.Command("unrar", "p", "-inul", "--", archive) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start unrar: %w", err)
	}
	return &Stream{cmd: cmd, stdout: stdout}, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Finish waits for unrar to exit cleanly after the stream is consumed.
func (s *Stream) Finish() error {
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("unrar exited: %w", err)
	}
	return nil
}

// Close kills the process and reaps it. Safe to call while unrar is blocked
// writing to stdout.
func (s *Stream) Close() error {
	_ = s.cmd.Process.Kill()
	_ = s.stdout.Close()
	_ = s.cmd.Wait()
	return nil
}
