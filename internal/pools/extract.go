package pools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mholt/archives"

	"riffle/internal/files"
	"riffle/internal/logging"
	"riffle/internal/unrar"
)

// ExtractionResult resolves exactly once with the outcome of extracting a
// single page file.
type ExtractionResult struct {
	once sync.Once
	err  error
	done chan struct{}
}

func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{done: make(chan struct{})}
}

func (r *ExtractionResult) resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once the page file either exists on disk or never will.
func (r *ExtractionResult) Done() <-chan struct{} {
	return r.done
}

// Err reports the extraction outcome. Only valid after Done is closed.
func (r *ExtractionResult) Err() error {
	return r.err
}

// PageExtraction names one member the pipeline needs out of an archive and
// the file it should become.
type PageExtraction struct {
	Name       string
	Dest       string
	Completion *ExtractionResult
}

// PendingExtraction is the work order handed to Extract for one archive.
type PendingExtraction struct {
	Archive string
	// Pages keys are cleaned archive-relative paths. Only the reader
	// goroutine touches the map once extraction starts.
	Pages map[string]PageExtraction
	// Jump carries at most one name that should come out ahead of natural
	// archive order. One jump is honored between entries.
	Jump chan string
}

// Abandon resolves every page of a plan that will never be handed to
// Extract, so nothing waits forever on a completion.
func (pe PendingExtraction) Abandon() {
	for _, page := range pe.Pages {
		page.Completion.resolve(ErrCanceled)
	}
}

// OngoingExtraction tracks a running extraction so it can be cancelled and
// drained.
type OngoingExtraction struct {
	cancel atomic.Bool
	wg     sync.WaitGroup
}

// Cancel stops the reader at the next entry boundary and waits for the
// writers to drain. Pages whose files never arrived resolve with
// ErrCanceled.
func (o *OngoingExtraction) Cancel() {
	o.cancel.Store(true)
	o.wg.Wait()
}

// Join waits for the extraction to finish naturally.
func (o *OngoingExtraction) Join() {
	o.wg.Wait()
}

var errStopExtraction = errors.New("stop extraction")

// Extract streams the archive front to back on a reader goroutine and fans
// finished entries out to writer goroutines over a bounded channel. Rar
// archives go through the external unrar pipe when the user allows it;
// everything else is streamed by format detection.
func (p *Pools) Extract(pending PendingExtraction) *OngoingExtraction {
	ongoing := &OngoingExtraction{}
	completed := make(chan extractedFile, p.extractionWriters*2)

	ongoing.wg.Add(1)
	go func() {
		defer ongoing.wg.Done()
		defer close(completed)
		p.runReader(pending, completed, ongoing)
	}()

	for i := 0; i < p.extractionWriters; i++ {
		ongoing.wg.Add(1)
		go func() {
			defer ongoing.wg.Done()
			p.runWriter(completed)
		}()
	}
	return ongoing
}

// ListArchive returns the cleaned member names in archive order.
func (p *Pools) ListArchive(path string) ([]string, error) {
	if p.useUnrar(path) {
		entries, err := unrar.List(p.ctx, p.runner, path)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, cleanEntryName(e.Name))
		}
		return names, nil
	}

	extractor, input, closeInput, err := p.openArchive(path)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	var names []string
	err = extractor.Extract(p.ctx, input, func(_ context.Context, info archives.FileInfo) error {
		if !info.IsDir() {
			names = append(names, cleanEntryName(info.NameInArchive))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", filepath.Base(path), err)
	}
	return names, nil
}

func (p *Pools) useUnrar(path string) bool {
	return files.IsRar(path) && p.allowExternal && unrar.Available()
}

type extractedFile struct {
	page PageExtraction
	data []byte
}

func (p *Pools) runReader(pending PendingExtraction, completed chan<- extractedFile, ongoing *OngoingExtraction) {
	var err error
	if p.useUnrar(pending.Archive) {
		err = p.unrarReader(pending, completed, ongoing)
	} else {
		err = p.archivesReader(pending, completed, ongoing)
	}
	if err != nil {
		p.logger.Error("archive extraction failed",
			logging.String(logging.FieldArchive, pending.Archive), logging.Error(err))
	}
	p.failRemaining(pending, err, ongoing.cancel.Load())
}

// failRemaining resolves every page the reader never dispatched so nothing
// waits forever on its completion channel.
func (p *Pools) failRemaining(pending PendingExtraction, readErr error, canceled bool) {
	for name, page := range pending.Pages {
		delete(pending.Pages, name)
		switch {
		case readErr != nil:
			completePage(page, readErr)
		case canceled:
			completePage(page, ErrCanceled)
		default:
			completePage(page, fmt.Errorf("%s missing from archive", name))
		}
	}
}

func (p *Pools) openArchive(path string) (archives.Extractor, io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}

	format, input, err := archives.Identify(p.ctx, path, f)
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("identify %s: %w", filepath.Base(path), err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		f.Close()
		return nil, nil, nil, fmt.Errorf("%s: format %s is not extractable", filepath.Base(path), format.Extension())
	}
	return extractor, input, func() { f.Close() }, nil
}

func (p *Pools) archivesReader(pending PendingExtraction, completed chan<- extractedFile, ongoing *OngoingExtraction) error {
	extractor, input, closeInput, err := p.openArchive(pending.Archive)
	if err != nil {
		return err
	}
	defer closeInput()

	err = extractor.Extract(p.ctx, input, func(_ context.Context, info archives.FileInfo) error {
		if ongoing.cancel.Load() || len(pending.Pages) == 0 {
			return errStopExtraction
		}
		p.serviceJump(pending, completed)

		if info.IsDir() {
			return nil
		}
		name := cleanEntryName(info.NameInArchive)
		page, ok := pending.Pages[name]
		if !ok {
			return nil
		}

		rc, err := info.Open()
		if err != nil {
			delete(pending.Pages, name)
			completePage(page, fmt.Errorf("open %s: %w", name, err))
			return nil
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			delete(pending.Pages, name)
			completePage(page, fmt.Errorf("read %s: %w", name, err))
			return nil
		}

		delete(pending.Pages, name)
		completed <- extractedFile{page: page, data: data}
		return nil
	})
	if err != nil && !errors.Is(err, errStopExtraction) {
		return err
	}
	return nil
}

// serviceJump pulls one jump request if present and extracts that file out
// of order. Failures are left for the sequential pass to retry.
func (p *Pools) serviceJump(pending PendingExtraction, completed chan<- extractedFile) {
	if pending.Jump == nil {
		return
	}
	select {
	case name := <-pending.Jump:
		page, ok := pending.Pages[name]
		if !ok {
			return
		}
		p.logger.Debug("extracting page out of order",
			logging.String(logging.FieldPage, name))

		var data []byte
		var err error
		if p.useUnrar(pending.Archive) {
			data, err = unrar.Extract(p.ctx, p.runner, pending.Archive, name)
		} else {
			data, err = p.fetchArchiveFile(pending.Archive, name)
		}
		if err != nil {
			p.logger.Debug("out of order extraction failed",
				logging.String(logging.FieldPage, name), logging.Error(err))
			return
		}
		delete(pending.Pages, name)
		completed <- extractedFile{page: page, data: data}
	default:
	}
}

// fetchArchiveFile reads a single member through a second pass over the
// archive.
func (p *Pools) fetchArchiveFile(archive, name string) ([]byte, error) {
	extractor, input, closeInput, err := p.openArchive(archive)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	var data []byte
	found := false
	err = extractor.Extract(p.ctx, input, func(_ context.Context, info archives.FileInfo) error {
		if info.IsDir() || cleanEntryName(info.NameInArchive) != name {
			return nil
		}
		rc, err := info.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		if err != nil {
			return err
		}
		found = true
		return errStopExtraction
	})
	if err != nil && !errors.Is(err, errStopExtraction) {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s not found in %s", name, filepath.Base(archive))
	}
	return data, nil
}

// unrarReader splits unrar's concatenated pipe output using the sizes from
// the listing. Directory entries list as size zero and emit nothing.
func (p *Pools) unrarReader(pending PendingExtraction, completed chan<- extractedFile, ongoing *OngoingExtraction) error {
	entries, err := unrar.List(p.ctx, p.runner, pending.Archive)
	if err != nil {
		return err
	}

	stream, err := unrar.OpenStream(pending.Archive)
	if err != nil {
		return err
	}
	defer stream.Close()

	for _, entry := range entries {
		if ongoing.cancel.Load() || len(pending.Pages) == 0 {
			return nil
		}
		p.serviceJump(pending, completed)

		name := cleanEntryName(entry.Name)
		page, ok := pending.Pages[name]
		if !ok {
			if _, err := io.CopyN(io.Discard, stream, entry.Size); err != nil {
				return fmt.Errorf("skip %s: %w", entry.Name, err)
			}
			continue
		}

		data := make([]byte, entry.Size)
		if _, err := io.ReadFull(stream, data); err != nil {
			return fmt.Errorf("read %s: %w", entry.Name, err)
		}
		delete(pending.Pages, name)
		completed <- extractedFile{page: page, data: data}
	}
	return stream.Finish()
}

func (p *Pools) runWriter(completed <-chan extractedFile) {
	for ef := range completed {
		err := writePage(ef)
		if err != nil {
			p.logger.Error("failed writing extracted page",
				logging.String(logging.FieldPage, ef.page.Dest), logging.Error(err))
		}
		completePage(ef.page, err)
	}
}

func writePage(ef extractedFile) error {
	if err := os.MkdirAll(filepath.Dir(ef.page.Dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(ef.page.Dest, ef.data, 0o644)
}

func completePage(page PageExtraction, err error) {
	page.Completion.resolve(err)
}

func cleanEntryName(name string) string {
	return filepath.Clean(filepath.ToSlash(name))
}
