package extraction

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pranay-lamse/crimedigest/internal/core/llm"
	"github.com/pranay-lamse/crimedigest/internal/models"
)

// Rasterizer turns a document into its ordered sequence of page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, document []byte) ([]models.PageImage, error)
}

// InferenceClient runs one image-understanding call per page.
type InferenceClient interface {
	ExtractPage(ctx context.Context, page models.PageImage, prompt string) (string, error)
}

// Store is the slice of persistence the pipeline needs: the resume mark,
// the fresh-run purge, and the per-page transactional write.
type Store interface {
	HighWaterMark(ctx context.Context, reportID int64) (int, error)
	PurgeReport(ctx context.Context, reportID int64) error
	PersistPage(ctx context.Context, reportID int64, page *models.PageExtraction, year, month int) error
}

// RunJob parametrizes one pipeline run. Prompt selection, persistence
// on/off, and the target report scope are configuration, not separate code
// paths.
type RunJob struct {
	ReportID int64
	Year     int
	Month    int
	Prompt   string
	Persist  bool
}

// Pipeline drives the per-page loop: rasterize, infer with retry, normalize,
// persist, and stream progress events in strict page order.
type Pipeline struct {
	raster Rasterizer
	client InferenceClient
	retry  *llm.RetryPolicy
	store  Store

	// storeTimeout bounds every store call the same way the inference call
	// carries its own cap; a stuck commit must not stall the run. Zero
	// disables the bound.
	storeTimeout time.Duration

	// continueOnStoreError keeps the run going when a page commit fails,
	// reporting the page as extracted-but-not-stored.
	continueOnStoreError bool
}

func NewPipeline(raster Rasterizer, client InferenceClient, retry *llm.RetryPolicy, store Store, storeTimeout time.Duration, continueOnStoreError bool) *Pipeline {
	return &Pipeline{
		raster:               raster,
		client:               client,
		retry:                retry,
		store:                store,
		storeTimeout:         storeTimeout,
		continueOnStoreError: continueOnStoreError,
	}
}

// boundStore derives a context for one store call.
func (p *Pipeline) boundStore(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.storeTimeout)
}

// Run processes one document. Events arrive on the channel in strict page
// order: one start event, one page event per page processed, then one
// complete event. Per-page failures never abort the run; only conditions
// that make every page impossible (rasterization, unreachable store)
// surface as a run-level error event and a non-nil error.
//
// Pages are processed strictly sequentially. Resumability depends on "page
// N persisted" being final before page N+1 starts, so there is no
// intra-document parallelism. When the caller disconnects the page in
// flight still finishes (and commits); the run stops before the next page.
func (p *Pipeline) Run(ctx context.Context, document []byte, job RunJob, events chan<- models.StreamEvent) (*models.RunSummary, error) {
	if job.Prompt == "" {
		job.Prompt = DefaultPrompt
	}

	pages, err := p.raster.Rasterize(ctx, document)
	if err != nil {
		err = fmt.Errorf("rasterize document: %w", err)
		p.emit(ctx, events, models.StreamEvent{Type: models.EventError, Detail: err.Error()})
		return nil, err
	}

	mark := 0
	if job.Persist {
		markCtx, cancel := p.boundStore(ctx)
		mark, err = p.store.HighWaterMark(markCtx, job.ReportID)
		cancel()
		if err != nil {
			err = fmt.Errorf("read resume mark for report %d: %w", job.ReportID, err)
			p.emit(ctx, events, models.StreamEvent{Type: models.EventError, Detail: err.Error()})
			return nil, err
		}
		if mark == 0 {
			// Fresh attempt: drop whatever a previous aborted run with
			// different content may have left behind.
			purgeCtx, cancel := p.boundStore(ctx)
			err := p.store.PurgeReport(purgeCtx, job.ReportID)
			cancel()
			if err != nil {
				err = fmt.Errorf("purge stale rows for report %d: %w", job.ReportID, err)
				p.emit(ctx, events, models.StreamEvent{Type: models.EventError, Detail: err.Error()})
				return nil, err
			}
			log.Printf("report %d: fresh run, %d pages", job.ReportID, len(pages))
		} else {
			log.Printf("report %d: resuming after page %d of %d", job.ReportID, mark, len(pages))
		}
	}

	summary := &models.RunSummary{TotalPages: len(pages), ResumedFrom: mark}
	p.emit(ctx, events, models.StreamEvent{Type: models.EventStart, TotalPages: len(pages)})

	for i := range pages {
		page := pages[i]
		if page.PageNumber <= mark {
			continue
		}
		// Caller disconnect is only honored between pages: no further page
		// starts, but the one in flight runs to completion below.
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		// Detach the page from caller cancellation so its inference and
		// commit finish even if the caller goes away mid-page. The per-call
		// inference timeout, the retry budget, and storeTimeout still bound
		// it.
		record := p.processPage(context.WithoutCancel(ctx), page, job)

		summary.Processed++
		if record.Error == "" && record.StoreError == "" {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Pages = append(summary.Pages, record)

		p.emit(ctx, events, models.StreamEvent{Type: models.EventPage, PageExtraction: &record})

		if record.StoreError != "" && !p.continueOnStoreError {
			err := fmt.Errorf("page %d: %s", record.PageNumber, record.StoreError)
			p.emit(ctx, events, models.StreamEvent{Type: models.EventError, Detail: err.Error()})
			return summary, err
		}
	}

	p.emit(ctx, events, models.StreamEvent{Type: models.EventComplete, TotalProcessed: summary.Processed})
	return summary, nil
}

// processPage runs inference (with retry), normalization, and the page
// transaction for a single page. Every failure mode collapses into fields
// on the returned record; the record itself always exists.
func (p *Pipeline) processPage(ctx context.Context, page models.PageImage, job RunJob) models.PageExtraction {
	raw, err := p.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return p.client.ExtractPage(ctx, page, job.Prompt)
	})
	if err != nil {
		log.Printf("page %d: inference failed: %v", page.PageNumber, err)
		return models.PageExtraction{
			PageNumber: page.PageNumber,
			Error:      err.Error(),
		}
	}

	record := Normalize(page.PageNumber, raw)
	if record.Error != "" {
		log.Printf("page %d: %s", page.PageNumber, record.Error)
		return record
	}

	if job.Persist {
		persistCtx, cancel := p.boundStore(ctx)
		err := p.store.PersistPage(persistCtx, job.ReportID, &record, job.Year, job.Month)
		cancel()
		if err != nil {
			// Extracted but not stored: the transaction rolled back and the
			// resume mark did not advance.
			log.Printf("page %d: persist failed: %v", page.PageNumber, err)
			record.StoreError = err.Error()
			return record
		}
		record.Stored = true
	}

	return record
}

// emit delivers one event, giving up only when the caller is gone.
func (p *Pipeline) emit(ctx context.Context, events chan<- models.StreamEvent, ev models.StreamEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
