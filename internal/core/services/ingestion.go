package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// Stage names used in summaries and progress callbacks.
const (
	StageAcquire = "acquire"
	StageChunk   = "chunk"
	StageLoad    = "load"
	StageIngest  = "ingest"
	StageRun     = "run"
)

// IngestionConfig wires the pipeline to its adapters.
// Only the adapters a stage uses need to be set for that stage.
type IngestionConfig struct {
	// Sources resolve references; the first that accepts a reference wins.
	Sources []driven.DocumentSource

	// Normaliser turns raw documents into plain text.
	Normaliser driven.Normaliser

	// Cleaner is optional; nil keeps the normalised text as is.
	Cleaner driven.TextCleaner

	// Records persists documents and chunks between stages.
	Records driven.RecordStore

	// Processing splits a document and embeds its chunks.
	Processing driven.PostProcessorPipeline

	// Embedding is used to check the model dimension before upserting.
	Embedding driven.EmbeddingService

	// Index receives the chunks.
	Index driven.VectorIndex

	// Collections ensures the target collection exists.
	Collections driving.CollectionService

	// Collection is the target collection name.
	Collection string

	// Workers bounds document-level parallelism (default: 4).
	Workers int

	// Language is used when a source does not determine one.
	Language domain.Language

	// DocumentsDir makes Run also write document records when set.
	DocumentsDir string
}

// IngestionPipeline drives acquire, chunk, embed and load.
// Documents are processed in parallel; per-item failures are collected in
// the stage summary and only configuration errors stop a stage.
type IngestionPipeline struct {
	cfg      IngestionConfig
	progress driving.ProgressFunc
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(cfg IngestionConfig) *IngestionPipeline {
	if cfg.Workers < 1 {
		cfg.Workers = domain.DefaultWorkers
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageItalian
	}
	return &IngestionPipeline{cfg: cfg}
}

// SetProgress registers a callback invoked after each item of a stage.
func (p *IngestionPipeline) SetProgress(fn driving.ProgressFunc) {
	p.progress = fn
}

// Acquire fetches and cleans the referenced documents and writes one
// document record per document into outDir.
func (p *IngestionPipeline) Acquire(ctx context.Context, refs []string, outDir string) (*domain.IngestionSummary, error) {
	logger.Section("Acquire")
	if p.cfg.Records == nil {
		return nil, missing("record store")
	}

	t := p.newTally(StageAcquire, len(refs))
	err := forEach(ctx, p.cfg.Workers, len(refs), func(ctx context.Context, i int) error {
		defer t.step()
		return p.acquireRef(ctx, refs[i], t, func(doc domain.Document) error {
			path, err := p.cfg.Records.WriteDocument(outDir, doc)
			if err == nil {
				logger.Debug("Wrote %s", path)
			}
			return err
		})
	})
	return t.finish(err)
}

// Chunk splits and embeds the document records in inDir and writes one
// chunk record per chunk into outDir.
func (p *IngestionPipeline) Chunk(ctx context.Context, inDir, outDir string) (*domain.IngestionSummary, error) {
	logger.Section("Chunk")
	if p.cfg.Records == nil {
		return nil, missing("record store")
	}
	if p.cfg.Processing == nil {
		return nil, missing("chunk pipeline")
	}

	paths, err := p.cfg.Records.ListDocuments(inDir)
	if err != nil {
		return nil, fmt.Errorf("list documents in %s: %w", inDir, err)
	}

	t := p.newTally(StageChunk, len(paths))
	err = forEach(ctx, p.cfg.Workers, len(paths), func(ctx context.Context, i int) error {
		defer t.step()
		path := paths[i]

		doc, err := p.cfg.Records.ReadDocument(path)
		if err != nil {
			t.failed(path, &domain.IngestionError{Item: path, Err: err})
			return nil
		}

		chunks, err := p.process(ctx, doc, t, path)
		if err != nil || chunks == nil {
			return err
		}

		if err := p.writeChunks(outDir, chunks); err != nil {
			t.failed(path, &domain.IngestionError{Item: path, Err: err})
			return nil
		}
		t.processed(len(chunks))
		return nil
	})
	return t.finish(err)
}

// writeChunks stores every chunk of one document or none of them, so a
// later load never indexes half a document.
func (p *IngestionPipeline) writeChunks(dir string, chunks []domain.Chunk) error {
	written := make([]string, 0, len(chunks))
	for _, c := range chunks {
		path, err := p.cfg.Records.WriteChunk(dir, c)
		if err != nil {
			for _, w := range written {
				if rmErr := p.cfg.Records.RemoveChunk(w); rmErr != nil {
					logger.Warn("Could not remove partial chunk %s: %v", w, rmErr)
				}
			}
			return err
		}
		written = append(written, path)
	}
	return nil
}

// Load upserts the chunk records in inDir into the configured collection.
// A chunk whose dimension does not match the collection stops the stage.
func (p *IngestionPipeline) Load(ctx context.Context, inDir string) (*domain.IngestionSummary, error) {
	logger.Section("Load")
	if p.cfg.Records == nil {
		return nil, missing("record store")
	}

	coll, err := p.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	paths, err := p.cfg.Records.ListChunks(inDir)
	if err != nil {
		return nil, fmt.Errorf("list chunks in %s: %w", inDir, err)
	}

	t := p.newTally(StageLoad, len(paths))
	err = forEach(ctx, p.cfg.Workers, len(paths), func(ctx context.Context, i int) error {
		defer t.step()
		path := paths[i]

		chunk, err := p.cfg.Records.ReadChunk(path)
		if err != nil {
			t.failed(path, &domain.IngestionError{Item: path, Err: err})
			return nil
		}
		if err := coll.CheckDimension(len(chunk.Vector)); err != nil {
			return err
		}
		return p.upsert(ctx, coll.Name, path, []domain.Chunk{*chunk}, t)
	})
	return t.finish(err)
}

// Ingest chunks, embeds and upserts documents without intermediate records.
func (p *IngestionPipeline) Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestionSummary, error) {
	logger.Section("Ingest")
	if p.cfg.Processing == nil {
		return nil, missing("chunk pipeline")
	}

	coll, err := p.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	if p.cfg.Embedding != nil && p.cfg.Embedding.Dimensions() > 0 {
		if err := coll.CheckDimension(p.cfg.Embedding.Dimensions()); err != nil {
			return nil, err
		}
	}

	t := p.newTally(StageIngest, len(docs))
	err = forEach(ctx, p.cfg.Workers, len(docs), func(ctx context.Context, i int) error {
		defer t.step()
		doc := docs[i]
		key := doc.Key()

		chunks, err := p.process(ctx, &doc, t, key)
		if err != nil || chunks == nil {
			return err
		}
		for _, c := range chunks {
			if err := coll.CheckDimension(len(c.Vector)); err != nil {
				return err
			}
		}
		return p.upsert(ctx, coll.Name, key, chunks, t)
	})
	return t.finish(err)
}

// Run acquires the references and ingests the result. Acquisition
// failures and ingestion failures are reported in one summary.
func (p *IngestionPipeline) Run(ctx context.Context, refs []string) (*domain.IngestionSummary, error) {
	logger.Section("Acquire")

	perRef := make([][]domain.Document, len(refs))
	acq := p.newTally(StageAcquire, len(refs))
	err := forEach(ctx, p.cfg.Workers, len(refs), func(ctx context.Context, i int) error {
		defer acq.step()
		return p.acquireRef(ctx, refs[i], acq, func(doc domain.Document) error {
			if p.cfg.DocumentsDir != "" && p.cfg.Records != nil {
				if _, err := p.cfg.Records.WriteDocument(p.cfg.DocumentsDir, doc); err != nil {
					return err
				}
			}
			perRef[i] = append(perRef[i], doc)
			return nil
		})
	})
	acqSummary, err := acq.finish(err)
	if err != nil {
		return acqSummary, err
	}

	var docs []domain.Document
	for _, d := range perRef {
		docs = append(docs, d...)
	}

	ingSummary, err := p.Ingest(ctx, docs)
	if ingSummary == nil {
		return acqSummary, err
	}

	summary := domain.NewIngestionSummary(StageRun)
	summary.Processed = ingSummary.Processed
	summary.Chunks = ingSummary.Chunks
	summary.Skipped = acqSummary.Skipped + ingSummary.Skipped
	summary.Failed = acqSummary.Failed + ingSummary.Failed
	summary.FailedItems = append(append(summary.FailedItems, acqSummary.FailedItems...), ingSummary.FailedItems...)
	return summary, err
}

// acquireRef fetches one reference and hands every usable document to sink.
// It returns an error only when the stage must stop.
func (p *IngestionPipeline) acquireRef(
	ctx context.Context, ref string, t *tally, sink func(domain.Document) error,
) error {
	src := p.sourceFor(ref)
	if src == nil {
		t.failed(ref, &domain.IngestionError{
			Item: ref,
			Err:  fmt.Errorf("%w: no source accepts this reference", domain.ErrUnsupportedType),
		})
		return nil
	}

	logger.Debug("Fetching %s via %s", ref, src.Name())
	raws, err := src.Fetch(ctx, ref, p.cfg.Language)
	if err != nil {
		if isFatal(err) {
			return err
		}
		t.failed(ref, &domain.IngestionError{Item: ref, Err: err})
		return nil
	}

	for i := range raws {
		raw := &raws[i]
		doc, err := p.normalise(ctx, raw)
		if err != nil {
			if isFatal(err) {
				return err
			}
			t.failed(raw.URI, &domain.IngestionError{Item: raw.URI, Err: err})
			continue
		}
		if doc.IsEmpty() {
			logger.Warn("Skipping %s: %v", doc.Key(), domain.ErrEmptyDocument)
			t.skipped()
			continue
		}
		if err := sink(*doc); err != nil {
			t.failed(doc.Key(), &domain.IngestionError{Item: doc.Key(), Err: err})
			continue
		}
		t.processed(0)
	}
	return nil
}

func (p *IngestionPipeline) sourceFor(ref string) driven.DocumentSource {
	for _, s := range p.cfg.Sources {
		if s.Accepts(ref) {
			return s
		}
	}
	return nil
}

func (p *IngestionPipeline) normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if p.cfg.Normaliser == nil {
		return nil, missing("normaliser")
	}
	res, err := p.cfg.Normaliser.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}

	doc := res.Document
	if doc.Language == "" {
		doc.Language = p.cfg.Language
	}
	if p.cfg.Cleaner != nil {
		cleaned, err := p.cfg.Cleaner.Clean(doc.Content, doc.Language)
		if err != nil {
			return nil, err
		}
		doc.Content = cleaned
	}
	return &doc, nil
}

// process runs the chunk pipeline for one document. A nil result with a
// nil error means the document was skipped or its failure recorded.
func (p *IngestionPipeline) process(
	ctx context.Context, doc *domain.Document, t *tally, item string,
) ([]domain.Chunk, error) {
	if doc.IsEmpty() {
		logger.Warn("Skipping %s: %v", item, domain.ErrEmptyDocument)
		t.skipped()
		return nil, nil
	}

	chunks, err := p.cfg.Processing.Process(ctx, doc)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		// Nothing of this document is kept.
		t.failed(item, err)
		return nil, nil
	}
	if len(chunks) == 0 {
		logger.Warn("Skipping %s: no chunks produced", item)
		t.skipped()
		return nil, nil
	}

	logger.Debug("%s: %d chunks", item, len(chunks))
	return chunks, nil
}

func (p *IngestionPipeline) upsert(ctx context.Context, collection, item string, chunks []domain.Chunk, t *tally) error {
	if err := p.cfg.Index.Upsert(ctx, collection, chunks); err != nil {
		if isFatal(err) {
			return err
		}
		t.failed(item, &domain.IngestionError{Item: item, Err: err})
		return nil
	}
	t.processed(len(chunks))
	return nil
}

func (p *IngestionPipeline) ensureCollection(ctx context.Context) (*domain.Collection, error) {
	if p.cfg.Index == nil || p.cfg.Collections == nil {
		return nil, missing("vector index")
	}
	return p.cfg.Collections.Ensure(ctx)
}

func (p *IngestionPipeline) newTally(stage string, total int) *tally {
	logger.Info("%s: %d items", stage, total)
	return &tally{
		summary:  domain.NewIngestionSummary(stage),
		total:    total,
		progress: p.progress,
	}
}

// isFatal reports whether an error must stop the whole stage rather than
// just the current item.
func isFatal(err error) bool {
	return domain.IsConfigurationError(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func missing(what string) error {
	return &domain.ConfigurationError{Op: "ingestion", Err: fmt.Errorf("%w: no %s configured", domain.ErrInvalidInput, what)}
}

// tally aggregates a stage summary across workers.
type tally struct {
	mu       sync.Mutex
	summary  *domain.IngestionSummary
	done     int
	total    int
	progress driving.ProgressFunc
}

func (t *tally) processed(chunks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Processed++
	t.summary.Chunks += chunks
}

func (t *tally) skipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Skipped++
}

func (t *tally) failed(item string, err error) {
	logger.Warn("Failed %s: %v", item, err)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.RecordFailure(item, err)
}

func (t *tally) step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if t.progress != nil {
		t.progress(t.summary.Stage, t.done, t.total)
	}
}

// finish sorts the failures so summaries are stable across runs.
func (t *tally) finish(err error) (*domain.IngestionSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sort.SliceStable(t.summary.FailedItems, func(i, j int) bool {
		return t.summary.FailedItems[i].Item < t.summary.FailedItems[j].Item
	})
	logger.Info("%s: %s", t.summary.Stage, t.summary)
	return t.summary, err
}

// forEach calls fn for indexes [0, n) on up to workers goroutines.
// The first error returned by fn cancels the remaining items and is
// returned; fn reports recoverable failures through the tally instead.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := 0; i < n && gctx.Err() == nil; i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
