// Package build renders every page under the source directories into the
// output directory.
package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	natomic "github.com/natefinch/atomic"

	"github.com/conneroisu/pugar/internal/cache"
	"github.com/conneroisu/pugar/internal/errors"
	"github.com/conneroisu/pugar/internal/logging"
	"github.com/conneroisu/pugar/pkg/pug"
)

// Config selects what the pipeline builds and where.
type Config struct {
	SourceDirs []string
	OutputDir  string
	Exclude    []string
	Workers    int
}

// Result is the outcome of building one page.
type Result struct {
	Source   Source
	Output   string
	Duration time.Duration
	CacheHit bool
	Err      error
}

// Callback is called when a page build completes
type Callback func(result Result)

// Pipeline renders pages concurrently. Each page is parsed by exactly one
// worker; workers share only the cache store and the metrics.
type Pipeline struct {
	cfg       Config
	opts      pug.Options
	store     cache.Store
	useCache  bool
	renderers map[string]*cache.Cached
	metrics   *Metrics
	collector *errors.ErrorCollector
	logger    logging.Logger
	callbacks []Callback
	mu        sync.Mutex
}

// NewPipeline creates a pipeline. store may be nil, which disables caching.
func NewPipeline(cfg Config, opts pug.Options, store cache.Store, logger logging.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	p := &Pipeline{
		cfg:       cfg,
		opts:      opts,
		store:     store,
		useCache:  store != nil,
		renderers: make(map[string]*cache.Cached, len(cfg.SourceDirs)),
		metrics:   NewMetrics(),
		collector: errors.NewErrorCollector(),
		logger:    logger.WithComponent("build"),
	}
	for _, root := range cfg.SourceDirs {
		p.renderers[root] = p.newRenderer(root)
	}
	return p
}

func (p *Pipeline) newRenderer(root string) *cache.Cached {
	return cache.NewCached(pug.New(p.opts, os.DirFS(root)), p.store, p.useCache, p.logger)
}

// AddCallback adds a callback to be called when builds complete
func (p *Pipeline) AddCallback(callback Callback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

// Metrics returns the pipeline's metrics.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Errors returns the collector holding failures from the latest build.
func (p *Pipeline) Errors() *errors.ErrorCollector { return p.collector }

// Clean removes the output directory.
func (p *Pipeline) Clean() error {
	if p.cfg.OutputDir == "" || p.cfg.OutputDir == "." || p.cfg.OutputDir == "/" {
		return fmt.Errorf("refusing to clean output dir %q", p.cfg.OutputDir)
	}
	return os.RemoveAll(p.cfg.OutputDir)
}

// Run discovers every page and builds them with the configured number of
// workers. Per-page failures are reported in the results and the error
// collector; the returned error covers discovery and cancellation only.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	sources, err := Discover(p.cfg.SourceDirs, p.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	p.collector.Clear()
	return p.Build(ctx, sources)
}

// Build builds the given pages. Errors recorded for other pages are kept.
func (p *Pipeline) Build(ctx context.Context, sources []Source) ([]Result, error) {
	op := logging.StartOperation(p.logger, "build")

	tasks := make(chan int)
	results := make([]Result, len(sources))

	var wg sync.WaitGroup
	workers := min(p.cfg.Workers, max(len(sources), 1))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				results[i] = p.BuildFile(ctx, sources[i])
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}

	snap := p.metrics.Snapshot()
	op.End(ctx, "pages", len(sources), "failed", len(p.collector.GetErrors()), "cache_hits", snap.CacheHits)
	return results, nil
}

// BuildFile renders one page and writes it to the output directory.
func (p *Pipeline) BuildFile(ctx context.Context, src Source) Result {
	start := time.Now()
	result := Result{Source: src, Output: src.OutputPath(p.cfg.OutputDir)}

	result.CacheHit, result.Err = p.buildFile(ctx, src, result.Output)
	result.Duration = time.Since(start)

	p.metrics.Record(result)
	if result.Err != nil {
		p.collector.Add(errors.FromError(src.Rel, result.Err))
		p.logger.Error(ctx, result.Err, "build failed", "source", src.Rel)
	} else {
		p.collector.ClearFile(src.Rel)
		p.logger.Debug(ctx, "built", "source", src.Rel, "output", result.Output,
			"cached", result.CacheHit, "duration", result.Duration)
	}

	p.mu.Lock()
	callbacks := p.callbacks
	p.mu.Unlock()
	for _, callback := range callbacks {
		callback(result)
	}
	return result
}

func (p *Pipeline) buildFile(ctx context.Context, src Source, out string) (bool, error) {
	renderer, ok := p.renderers[src.Root]
	if !ok {
		return false, fmt.Errorf("source %s is outside the configured source dirs", src.Path())
	}

	data, err := os.ReadFile(src.Path())
	if err != nil {
		return false, err
	}
	html, hit, err := renderer.Render(ctx, src.Rel, data)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return hit, fmt.Errorf("creating output dir: %w", err)
	}
	if err := natomic.WriteFile(out, bytes.NewReader([]byte(html+"\n"))); err != nil {
		return hit, fmt.Errorf("writing %s: %w", out, err)
	}
	return hit, nil
}
