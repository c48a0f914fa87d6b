package unrar

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"riffle/internal/proc"
)

type fakeRunner struct {
	out  []byte
	err  error
	spec proc.Spec
}

func (f *fakeRunner) Run(_ context.Context, spec proc.Spec) error {
	f.spec = spec
	return f.err
}

func (f *fakeRunner) Capture(_ context.Context, spec proc.Spec) ([]byte, error) {
	f.spec = spec
	return f.out, f.err
}

func (f *fakeRunner) Output(_ context.Context, spec proc.Spec) ([]byte, []byte, error) {
	f.spec = spec
	return f.out, nil, f.err
}

func (f *fakeRunner) Pipe(_ context.Context, spec proc.Spec, w io.Writer) error {
	f.spec = spec
	if f.err == nil {
		_, _ = w.Write(f.out)
	}
	return f.err
}

func (f *fakeRunner) Start(spec proc.Spec) error {
	f.spec = spec
	return f.err
}

const sampleListing = `
UNRAR 6.24 freeware      Copyright (c) 1993-2023 Alexander Roshal

Archive: chapter.rar
Details: RAR 5

 Attributes      Size     Date    Time   Name
----------- ---------  ---------- -----  ----
 -rw-r--r--    123456  2024-01-02 10:11  page 01.png
 -rw-r--r--      7890  2024-01-02 10:11  extras/page 02.jpg
 drwxr-xr-x         0  2024-01-02 10:11  extras
----------- ---------  ---------- -----  ----
               131346                     3
`

func TestListParsesEntries(t *testing.T) {
	runner := &fakeRunner{out: []byte(sampleListing)}

	entries, err := List(context.Background(), runner, "/comics/chapter.rar")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []Entry{
		{Name: "page 01.png", Size: 123456},
		{Name: "extras/page 02.jpg", Size: 7890},
		{Name: "extras", Size: 0},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}

	wantArgs := []string{"l", "--", "/comics/chapter.rar"}
	if !reflect.DeepEqual(runner.spec.Args, wantArgs) {
		t.Errorf("args = %v, want %v", runner.spec.Args, wantArgs)
	}
}

func TestListPropagatesFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("corrupt header")}

	_, err := List(context.Background(), runner, "/comics/broken.rar")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractPassesMemberName(t *testing.T) {
	runner := &fakeRunner{out: []byte("pixels")}

	data, err := Extract(context.Background(), runner, "/comics/chapter.rar", "page 01.png")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("data = %q", data)
	}

	wantArgs := []string{"p", "-inul", "--", "/comics/chapter.rar", "page 01.png"}
	if !reflect.DeepEqual(runner.spec.Args, wantArgs) {
		t.Errorf("args = %v, want %v", runner.spec.Args, wantArgs)
	}
}

func TestParseListingIgnoresChrome(t *testing.T) {
	entries := parseListing([]byte("no table here\nDetails: RAR 5\n"))
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}
}
