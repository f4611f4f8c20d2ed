package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/copomatas/internal/catalog"
	"github.com/ppiankov/copomatas/internal/content"
	"github.com/ppiankov/copomatas/internal/logger"
	"github.com/ppiankov/copomatas/internal/model"
	"github.com/ppiankov/copomatas/internal/output"
	"github.com/ppiankov/copomatas/internal/worker"
)

// Progress receives one tick per record whose content was fetched. Add is
// called from worker goroutines when more than one worker is configured.
type Progress interface {
	ChangeMax(n int)
	Add(n int) error
}

// Publisher uploads the written output files
type Publisher interface {
	Publish(ctx context.Context, files []string) ([]string, error)
}

// Pipeline orchestrates catalog fetching, content extraction, previews and output
type Pipeline struct {
	fetcher   *Fetcher
	content   *content.Fetcher
	writer    *output.Writer
	publisher Publisher // nil when publishing is disabled
	progress  Progress  // nil when progress is not reported
	config    *model.Config
	log       *logger.Logger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithPublisher uploads the output files after they are written
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithProgress reports per-record progress to p
func WithProgress(p Progress) Option {
	return func(pl *Pipeline) { pl.progress = p }
}

// NewPipeline creates a pipeline around fetcher with the given configuration
func NewPipeline(cfg *model.Config, fetcher *Fetcher, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		content: content.NewFetcher(fetcher, cfg.Source.BaseURL, cfg.Source.ContentLookup),
		writer:  output.NewWriter(cfg.Output),
		config:  cfg,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes a completed run
type Result struct {
	Records    int
	Partitions []output.Partition
	Files      []string
	Published  []string
	Duration   time.Duration
}

// Count returns the number of records of docType that were written
func (r *Result) Count(docType model.DocumentType) int {
	for _, p := range r.Partitions {
		if p.Type == docType {
			return len(p.Records)
		}
	}
	return 0
}

// Run executes the whole batch. Any failure aborts the run before output is
// written; no partial result is kept.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	records, err := p.LoadCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	p.log.Info("catalogs loaded", "records", len(records))
	if p.progress != nil {
		p.progress.ChangeMax(len(records))
	}

	records, err = p.Enrich(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}

	partitions, err := output.Summarize(output.Split(records))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	files, err := p.writer.Write(partitions)
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	for _, part := range partitions {
		p.log.Info("partition written", "type", part.Type, "rows", len(part.Records), "path", p.config.Output.PathFor(part.Type))
	}

	result := &Result{
		Records:    len(records),
		Partitions: partitions,
		Files:      files,
	}

	if p.publisher != nil {
		uris, err := p.publisher.Publish(ctx, files)
		if err != nil {
			return nil, fmt.Errorf("publish output: %w", err)
		}
		result.Published = uris
		p.log.Info("output published", "objects", len(uris))
	}

	result.Duration = time.Since(start)
	return result, nil
}

// LoadCatalogs fetches the legacy and current catalogs and merges them
func (p *Pipeline) LoadCatalogs(ctx context.Context) ([]model.MeetingRecord, error) {
	src := p.config.Source

	legacy, err := catalog.Fetch(ctx, p.fetcher, src.LegacyCatalogURL(), model.LinkFieldLegacy)
	if err != nil {
		return nil, fmt.Errorf("legacy catalog: %w", err)
	}
	p.log.Debug("legacy catalog fetched", "records", len(legacy))

	current, err := catalog.Fetch(ctx, p.fetcher, src.CurrentCatalogURL(), model.LinkFieldCurrent)
	if err != nil {
		return nil, fmt.Errorf("current catalog: %w", err)
	}
	p.log.Debug("current catalog fetched", "records", len(current))

	return catalog.Merge(legacy, current), nil
}

// Enrich returns a copy of records with their full text. With one worker
// records are fetched strictly in order; with more, fetches fan out but the
// first failure still aborts the batch.
func (p *Pipeline) Enrich(ctx context.Context, records []model.MeetingRecord) ([]model.MeetingRecord, error) {
	if p.config.Concurrency.Workers <= 1 {
		return p.enrichSequential(ctx, records)
	}
	return p.enrichConcurrent(ctx, records)
}

func (p *Pipeline) enrichSequential(ctx context.Context, records []model.MeetingRecord) ([]model.MeetingRecord, error) {
	out := make([]model.MeetingRecord, len(records))
	for i, r := range records {
		text, err := p.content.Fetch(ctx, r)
		if err != nil {
			return nil, recordError(i, r, err)
		}
		out[i] = r.WithFullText(text)
		p.tick()
	}
	return out, nil
}

func (p *Pipeline) enrichConcurrent(ctx context.Context, records []model.MeetingRecord) ([]model.MeetingRecord, error) {
	pool := worker.NewPool(ctx, p.config.Concurrency.Workers, true)
	pool.Start()

	for i, r := range records {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(&contentJob{index: i, record: r, content: p.content, done: p.tick})
	}

	var results []worker.Result
	if ctx.Err() != nil {
		p.log.Warn("content fetch interrupted, draining workers")
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}
	if err := worker.FirstError(results); err != nil {
		return nil, err
	}
	// records never submitted have no result
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.MeetingRecord, len(records))
	for _, res := range results {
		job := res.(*contentResult)
		out[job.index] = records[job.index].WithFullText(job.text)
	}
	return out, nil
}

func (p *Pipeline) tick() {
	if p.progress != nil {
		_ = p.progress.Add(1)
	}
}

func recordError(i int, r model.MeetingRecord, err error) error {
	return fmt.Errorf("row %d %s (%s %q): %w", i, r.Title, r.DocumentType, r.PageLink, err)
}

// contentJob fetches the full text of one record on the pool
type contentJob struct {
	index   int
	record  model.MeetingRecord
	content *content.Fetcher
	done    func()
}

func (j *contentJob) Index() int { return j.index }

func (j *contentJob) Execute(ctx context.Context) worker.Result {
	text, err := j.content.Fetch(ctx, j.record)
	if err != nil {
		err = recordError(j.index, j.record, err)
	} else {
		j.done()
	}
	return &contentResult{index: j.index, text: text, err: err}
}

type contentResult struct {
	index int
	text  string
	err   error
}

func (r *contentResult) Index() int      { return r.index }
func (r *contentResult) GetError() error { return r.err }
