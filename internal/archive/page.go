package archive

import (
	"os"
	"strconv"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/pools"
)

type pageState int

const (
	pageExtracting pageState = iota
	pageUnscanned
	pageScanning
	pageScanned
	pageFailed
)

func (s pageState) String() string {
	switch s {
	case pageExtracting:
		return "extracting"
	case pageUnscanned:
		return "unscanned"
	case pageScanning:
		return "scanning"
	case pageScanned:
		return "scanned"
	default:
		return "failed"
	}
}

type pageOrigin int

const (
	originOriginal pageOrigin = iota
	originExtracted
)

// Page is one displayable member of an archive. It starts as a file that
// may not exist yet, is scanned to find out what it holds, and then
// delegates to the media state machine the scan produced.
type Page struct {
	deps *Deps
	// name is the member path with any wrapper directory stripped.
	name string
	// relPath is the full in-archive path, which is also the extraction
	// plan key.
	relPath string
	index   int
	file    string
	tempDir string
	origin  pageOrigin
	state   pageState
	// extraction resolves when the file exists on disk. Only set for
	// extracted pages.
	extraction *pools.ExtractionResult
	// jump may carry this page's name past sequential extraction order.
	// It is forfeited after one attempt, successful or not.
	jump     chan<- string
	scan     *pools.Job[pools.ScanResult]
	scanLoad bool
	content  media
	failure  string
}

func newExtractedPage(deps *Deps, name, relPath string, index int, tempDir, file string,
	extraction *pools.ExtractionResult, jump chan<- string) *Page {
	return &Page{
		deps:       deps,
		name:       name,
		relPath:    relPath,
		index:      index,
		file:       file,
		tempDir:    tempDir,
		origin:     originExtracted,
		state:      pageExtracting,
		extraction: extraction,
		jump:       jump,
	}
}

func newOriginalPage(deps *Deps, name, relPath string, index int, tempDir, file string) *Page {
	return &Page{
		deps:    deps,
		name:    name,
		relPath: relPath,
		index:   index,
		file:    file,
		tempDir: tempDir,
		origin:  originOriginal,
		state:   pageUnscanned,
	}
}

func (p *Page) Name() string { return p.name }

// Displayable is the page as the front end should show it right now.
func (p *Page) Displayable(upscaling bool) display.Content {
	switch p.state {
	case pageScanned:
		return p.content.displayable(upscaling)
	case pageFailed:
		return display.Content{Kind: display.Error, Error: p.failure}
	default:
		return display.Content{Kind: display.Pending}
	}
}

// HasWork reports whether Step would make progress toward work.
func (p *Page) HasWork(work Work) bool {
	switch p.state {
	case pageExtracting, pageUnscanned:
		return true
	case pageScanning:
		// A scan in flight satisfies scan work. Anything higher must
		// wait for the result first.
		return work.level > levelScan
	case pageScanned:
		return p.content.hasWork(work)
	default:
		return false
	}
}

// Step advances the page toward what work asks for. It never blocks: when
// a unit is in flight it returns Waiting and the channel that closes once
// the unit settles, and the caller steps again to apply the result.
func (p *Page) Step(work Work) (Progress, <-chan struct{}) {
	if work.extractEarly() {
		p.tryJumpQueue()
	}
	switch p.state {
	case pageExtracting:
		select {
		case <-p.extraction.Done():
			if err := p.extraction.Err(); err != nil {
				p.deps.Logger.Error("failed to extract page",
					logging.String(logging.FieldPage, p.relPath), logging.Error(err))
				p.failure = "Failed to extract page."
				p.state = pageFailed
				return More, nil
			}
			// Waiting on extraction is not a tracked unit. The scan
			// that follows is.
			p.startScan(work)
			return StartedScan, nil
		default:
			return Waiting, p.extraction.Done()
		}
	case pageUnscanned:
		p.startScan(work)
		return StartedScan, nil
	case pageScanning:
		select {
		case <-p.scan.Done():
			p.applyScan(work)
			return Scanned, nil
		default:
			return Waiting, p.scan.Done()
		}
	case pageScanned:
		return p.content.step(work)
	default:
		// HasWork is always false for a failed page, so the scheduler
		// never steps one.
		panic("stepped a failed page")
	}
}

// tryJumpQueue offers this page to the extractor ahead of archive order.
// Pages that already exist, or that spent their one attempt, stay quiet.
func (p *Page) tryJumpQueue() {
	if p.state != pageExtracting || p.jump == nil {
		return
	}
	select {
	case p.jump <- p.relPath:
	default:
		// The slot is taken, which means order is already being bent
		// for some page. Close enough.
	}
	p.jump = nil
}

func (p *Page) startScan(work Work) {
	p.scanLoad = work.loadDuringScan()
	p.scan = p.deps.Pools.Scan(p.file, p.scanLoad)
	p.state = pageScanning
}

func (p *Page) applyScan(work Work) {
	result, err := p.scan.Result()
	p.scan = nil
	if err != nil {
		// Scans fold decode problems into the result, so an error here
		// is a cancellation. Back to the start.
		p.state = pageUnscanned
		return
	}
	if !p.scanLoad {
		// The page was unloaded mid-scan. Keep the measurements, drop
		// the pixels.
		result.Still = nil
	}
	p.content = newMedia(p.deps, p, result, work.fitTarget())
	p.state = pageScanned
}

// Unload sheds decoded pixels. A scan in flight is downgraded rather than
// cancelled so the classification is not lost.
func (p *Page) Unload() {
	switch p.state {
	case pageScanning:
		p.scanLoad = false
	case pageScanned:
		p.content.unload()
	}
}

// Join blocks until nothing touches the page's files anymore, then removes
// the extracted file. It must not run on the scheduler goroutine.
func (p *Page) Join() {
	switch p.state {
	case pageExtracting:
		<-p.extraction.Done()
		if p.extraction.Err() != nil {
			return
		}
	case pageScanning:
		<-p.scan.Done()
	case pageScanned:
		p.content.join()
	case pageFailed:
		return
	}
	if p.origin == originExtracted {
		if err := os.Remove(p.file); err != nil {
			p.deps.Logger.Error("failed to remove extracted page",
				logging.String(logging.FieldPage, p.file), logging.Error(err))
		}
	}
}

// Env is the page part of the environment handed to executed commands.
// The current file is withheld while it does not exist or never will.
func (p *Page) Env() []string {
	env := []string{
		"RIFFLE_PAGE_NUMBER=" + strconv.Itoa(p.index+1),
		"RIFFLE_RELATIVE_FILE_PATH=" + p.relPath,
	}
	switch p.state {
	case pageExtracting, pageFailed:
	default:
		env = append(env, "RIFFLE_CURRENT_FILE="+p.file)
	}
	return env
}

// PageInfo is the list-pages view of one page.
type PageInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

func (p *Page) Info() PageInfo {
	return PageInfo{Name: p.name, Path: p.relPath, State: p.state.String()}
}
