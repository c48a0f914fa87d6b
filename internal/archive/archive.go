// Package archive models one open archive and its pages as cooperative
// state machines. Everything here runs on the manager goroutine and never
// blocks, with one exception: Join waits for all in-flight work and is
// called from a detached goroutine once the archive leaves the window.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/logging"
	"riffle/internal/natsort"
	"riffle/internal/pools"
)

// Deps is what archives and their pages need to get anything done.
type Deps struct {
	Pools  *pools.Pools
	Logger *slog.Logger
}

// Kind says where an archive's pages come from.
type Kind int

const (
	Directory Kind = iota
	Compressed
	FileSet
	Broken
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Compressed:
		return "compressed"
	case FileSet:
		return "fileset"
	default:
		return "broken"
	}
}

// envType is the archive type name exposed to executed commands.
func (k Kind) envType() string {
	switch k {
	case Directory:
		return "directory"
	case Compressed:
		return "archive"
	case FileSet:
		return "fileset"
	default:
		return "unknown"
	}
}

// Archive is one open collection of pages. Compressed archives carry an
// extraction plan that stays parked until the manager decides the archive
// is close enough to the current page to be worth the disk traffic.
type Archive struct {
	deps    *Deps
	id      string
	name    string
	path    string
	kind    Kind
	pages   []*Page
	tempDir string
	// broken carries the user-facing reason when kind is Broken.
	broken string
	// plan is the not-yet-started extraction. Nil once handed to the
	// pools or for anything that is not a compressed archive.
	plan    *pools.PendingExtraction
	ongoing *pools.OngoingExtraction
}

// Open inspects path and builds the matching archive. A directory becomes
// its own archive, a page file opens its parent directory positioned on
// that file, anything else is treated as a compressed archive. Failures
// yield a Broken archive rather than an error so the window always has
// something to hold. The returned index is the page to land on, -1 when
// there are no pages.
func Open(deps *Deps, path, tempRoot string) (*Archive, int) {
	abs, err := canonicalize(path)
	if err != nil {
		deps.Logger.Error("failed to resolve archive path",
			logging.String(logging.FieldArchive, path), logging.Error(err))
		return newBroken(deps, path, fmt.Sprintf("Could not resolve %s", path)), -1
	}
	info, err := os.Stat(abs)
	if err != nil {
		deps.Logger.Error("failed to stat archive",
			logging.String(logging.FieldArchive, abs), logging.Error(err))
		return newBroken(deps, abs, fmt.Sprintf("Could not read %s", abs)), -1
	}

	id := uuid.NewString()
	adeps := &Deps{
		Pools: deps.Pools,
		Logger: deps.Logger.With(
			logging.String(logging.FieldCorrelationID, id),
			logging.String(logging.FieldArchive, abs)),
	}
	tempDir, err := makeTempDir(tempRoot, id)
	if err != nil {
		adeps.Logger.Error("failed to create temp dir", logging.Error(err))
		return newBroken(deps, abs, fmt.Sprintf("Could not create temporary directory: %v", err)), -1
	}

	var a *Archive
	initial := -1
	switch {
	case info.IsDir():
		a, err = newDirectoryArchive(adeps, abs, id, tempDir)
	case files.IsSupportedPage(abs):
		return openSiblingDirectory(adeps, abs, id, tempDir)
	default:
		a, err = newCompressedArchive(adeps, abs, id, tempDir)
	}
	if err != nil {
		os.RemoveAll(tempDir)
		adeps.Logger.Error("failed to open archive", logging.Error(err))
		return newBroken(deps, abs, fmt.Sprintf("Failed to open %s", abs)), -1
	}
	if len(a.pages) > 0 {
		initial = 0
	}
	adeps.Logger.Debug("opened archive",
		logging.String("kind", a.kind.String()),
		logging.Int("pages", len(a.pages)))
	return a, initial
}

// openSiblingDirectory opens the directory containing file and finds the
// file's own page index, so opening a single image lands on it with its
// neighbours around it.
func openSiblingDirectory(deps *Deps, file, id, tempDir string) (*Archive, int) {
	a, err := newDirectoryArchive(deps, filepath.Dir(file), id, tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		deps.Logger.Error("failed to open archive", logging.Error(err))
		return newBroken(deps, file, fmt.Sprintf("Failed to open %s", filepath.Dir(file))), -1
	}
	base := filepath.Base(file)
	key := natsort.ParseKey(base)
	i := sort.Search(len(a.pages), func(i int) bool {
		return natsort.Compare(natsort.ParseKey(a.pages[i].name), key) >= 0
	})
	// Keys can tie without the names being equal, so walk the tie region
	// for the exact one.
	for j := i; j < len(a.pages); j++ {
		if natsort.Compare(natsort.ParseKey(a.pages[j].name), key) != 0 {
			break
		}
		if a.pages[j].name == base {
			return a, j
		}
	}
	deps.Logger.Error("opened file missing from its directory listing",
		logging.String(logging.FieldPage, base))
	if len(a.pages) > 0 {
		return a, 0
	}
	return a, -1
}

func newBroken(deps *Deps, path, reason string) *Archive {
	return &Archive{deps: deps, name: "Broken", path: path, kind: Broken, broken: reason}
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func makeTempDir(tempRoot, id string) (string, error) {
	dir := filepath.Join(tempRoot, "riffle-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (a *Archive) ID() string { return a.id }

func (a *Archive) Name() string { return a.name }

func (a *Archive) Path() string { return a.path }

func (a *Archive) Kind() Kind { return a.kind }

func (a *Archive) PageCount() int { return len(a.pages) }

// Displayable is the content and page name at index i. Out-of-range
// indices, including -1 for an empty archive, report that there is
// nothing to show.
func (a *Archive) Displayable(i int, upscaling bool) (display.Content, string) {
	if a.kind == Broken {
		return display.Content{Kind: display.Error, Error: a.broken}, ""
	}
	if i < 0 || i >= len(a.pages) {
		return display.Content{
			Kind:  display.Error,
			Error: fmt.Sprintf("Found nothing to display in %s", a.name),
		}, ""
	}
	p := a.pages[i]
	return p.Displayable(upscaling), p.name
}

// StartExtraction hands the extraction plan to the pools. Harmless to call
// again or on archives that have nothing to extract.
func (a *Archive) StartExtraction() {
	if a.plan == nil {
		return
	}
	plan := *a.plan
	a.plan = nil
	a.ongoing = a.deps.Pools.Extract(plan)
	a.deps.Logger.Debug("started extraction", logging.Int("pages", len(plan.Pages)))
}

// HasWork reports whether page i could progress toward work.
func (a *Archive) HasWork(i int, work Work) bool {
	if a.kind == Broken || i < 0 || i >= len(a.pages) {
		return false
	}
	return a.pages[i].HasWork(work)
}

// Step advances page i. Stepping a compressed archive before
// StartExtraction is a scheduling bug and panics.
func (a *Archive) Step(i int, work Work) (Progress, <-chan struct{}) {
	if a.plan != nil {
		panic(fmt.Sprintf("stepped page %d of %s before extraction started", i, a.name))
	}
	return a.pages[i].Step(work)
}

// Unload sheds page i's decoded pixels.
func (a *Archive) Unload(i int) {
	if i < 0 || i >= len(a.pages) {
		return
	}
	a.pages[i].Unload()
}

// QueueEarlyExtraction offers page i to the extractor out of order, ahead
// of StartExtraction. Lets the first image of a freshly opened archive
// beat the full sequential pass.
func (a *Archive) QueueEarlyExtraction(i int) {
	if a.kind != Compressed || i < 0 || i >= len(a.pages) {
		return
	}
	a.pages[i].tryJumpQueue()
}

// Join cancels extraction, waits out every page's in-flight work and
// removes the temp dir. Blocks; must not run on the manager goroutine.
func (a *Archive) Join() {
	if a.ongoing != nil {
		a.ongoing.Cancel()
		a.ongoing = nil
	} else if a.plan != nil {
		a.plan.Abandon()
		a.plan = nil
	}
	for _, p := range a.pages {
		p.Join()
	}
	a.pages = nil
	if a.tempDir != "" {
		if err := os.RemoveAll(a.tempDir); err != nil {
			a.deps.Logger.Error("failed to remove temp dir", logging.Error(err))
		}
		a.tempDir = ""
	}
	a.deps.Logger.Debug("closed archive")
}

// Env is the environment handed to executed commands: the page's own
// variables when the index is valid, plus the archive's.
func (a *Archive) Env(page int) []string {
	var env []string
	if page >= 0 && page < len(a.pages) {
		env = a.pages[page].Env()
	}
	env = append(env,
		"RIFFLE_ARCHIVE="+a.path,
		"RIFFLE_ARCHIVE_TYPE="+a.kind.envType(),
		fmt.Sprintf("RIFFLE_PAGE_COUNT=%d", len(a.pages)))
	return env
}

// Pages lists every page for status reporting.
func (a *Archive) Pages() []PageInfo {
	infos := make([]PageInfo, len(a.pages))
	for i, p := range a.pages {
		infos[i] = p.Info()
	}
	return infos
}
