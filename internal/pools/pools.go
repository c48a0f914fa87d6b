// Package pools owns the bounded worker pools the pipeline schedules decode,
// resample, upscale, and extraction work onto. Scanning shares the loading
// pool; extraction spawns per-archive reader and writer goroutines instead.
package pools

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"riffle/internal/config"
	"riffle/internal/logging"
	"riffle/internal/proc"
)

// ErrCanceled is reported by jobs that observed their cancel flag before
// finishing.
var ErrCanceled = errors.New("canceled")

// Job is the pending result of one unit of pool work. The scheduler waits on
// Done and reads Result exactly once after it closes.
type Job[T any] struct {
	done       chan struct{}
	result     T
	err        error
	cancelOnce sync.Once
	cancelCh   chan struct{}
}

func newJob[T any]() *Job[T] {
	return &Job[T]{
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
}

// Done is closed once the result is available.
func (j *Job[T]) Done() <-chan struct{} {
	return j.done
}

// Result is only valid after Done is closed.
func (j *Job[T]) Result() (T, error) {
	return j.result, j.err
}

// Cancel asks the worker to abandon the job. The job still completes, usually
// with ErrCanceled; callers must keep waiting on Done before reusing the slot.
func (j *Job[T]) Cancel() {
	j.cancelOnce.Do(func() { close(j.cancelCh) })
}

// Canceled reports whether Cancel has been called.
func (j *Job[T]) Canceled() bool {
	select {
	case <-j.cancelCh:
		return true
	default:
		return false
	}
}

func (j *Job[T]) complete(result T, err error) {
	j.result = result
	j.err = err
	close(j.done)
}

// workerPool runs queued closures on a fixed set of goroutines. The urgent
// lane is polled before the backlog so current-page work jumps the queue.
type workerPool struct {
	urgent chan func()
	jobs   chan func()
	quit   chan struct{}
	wg     sync.WaitGroup
}

func newWorkerPool(workers, backlog int) *workerPool {
	if workers < 1 {
		workers = 1
	}
	p := &workerPool{
		urgent: make(chan func(), backlog),
		jobs:   make(chan func(), backlog),
		quit:   make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *workerPool) run() {
	defer p.wg.Done()
	for {
		select {
		case fn := <-p.urgent:
			fn()
			continue
		default:
		}
		select {
		case fn := <-p.urgent:
			fn()
		case fn := <-p.jobs:
			fn()
		case <-p.quit:
			p.drain()
			return
		}
	}
}

// drain runs whatever was accepted before shutdown so every submitted job
// completes. Jobs observe their cancel flags and finish quickly.
func (p *workerPool) drain() {
	for {
		select {
		case fn := <-p.urgent:
			fn()
		case fn := <-p.jobs:
			fn()
		default:
			return
		}
	}
}

// submit enqueues fn in FIFO order and reports whether it was accepted.
// Blocks only when the backlog is full.
func (p *workerPool) submit(fn func()) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.jobs <- fn:
		return true
	case <-p.quit:
		return false
	}
}

// submitUrgent enqueues fn on the priority lane.
func (p *workerPool) submitUrgent(fn func()) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.urgent <- fn:
		return true
	case <-p.quit:
		return false
	}
}

func (p *workerPool) close() {
	close(p.quit)
	p.wg.Wait()
}

// Pools bundles the shared worker pools and the policy they need.
type Pools struct {
	ctx    context.Context
	cancel context.CancelFunc

	loading     *workerPool
	downscaling *workerPool
	upscaling   *workerPool

	// backgroundScale caps concurrent downscales for non-current pages so
	// the current page's latency stays reasonable.
	backgroundScale chan struct{}

	runner         proc.Runner
	upscaleCommand string
	upscaleTimeout time.Duration

	extractionWriters int
	allowExternal     bool

	logger *slog.Logger
}

// New builds the pool set from configuration. The context bounds every
// external process the pools spawn.
func New(ctx context.Context, cfg *config.Config, runner proc.Runner, logger *slog.Logger) *Pools {
	ctx, cancel := context.WithCancel(ctx)
	if runner == nil {
		runner = proc.CommandRunner{}
	}

	writers := cfg.ExtractionThreads() - 1
	if writers < 1 {
		writers = 1
	}

	loadingThreads := cfg.LoadingThreads()
	p := &Pools{
		ctx:               ctx,
		cancel:            cancel,
		loading:           newWorkerPool(loadingThreads, loadingThreads*4),
		downscaling:       newWorkerPool(cfg.DownscalingThreads(), cfg.DownscalingThreads()*4),
		backgroundScale:   make(chan struct{}, cfg.Downscaling.BackgroundJobs),
		runner:            runner,
		upscaleCommand:    cfg.Upscaling.Command,
		upscaleTimeout:    cfg.UpscaleTimeout(),
		extractionWriters: writers,
		allowExternal:     cfg.Extraction.AllowExternalExtractors,
		logger:            logging.NewComponentLogger(logger, "pools"),
	}
	if cfg.UpscalingAvailable() {
		p.upscaling = newWorkerPool(cfg.Upscaling.Threads, cfg.Upscaling.Threads*4)
	}
	return p
}

// Close stops the pools. Queued jobs still run so their futures complete, but
// the canceled context makes them finish quickly. Only call this after the
// scheduler has stopped submitting work.
func (p *Pools) Close() {
	p.cancel()
	p.loading.close()
	p.downscaling.close()
	if p.upscaling != nil {
		p.upscaling.close()
	}
}
