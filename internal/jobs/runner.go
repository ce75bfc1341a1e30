// Package jobs implements a single-slot cooperative background
// execution model: one Progress snapshot per job kind (crawl, embed),
// at most one running job per kind, sequential per-item processing
// with Crawler/Embedder errors absorbed into Progress rather than
// aborting the job.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
)

// Runner owns one Progress slot per JobKind and the single worker
// goroutine driving each. It is a process-local singleton with no
// persisted queue: jobs live only in memory for the life of the
// process.
type Runner struct {
	mu       sync.Mutex
	progress map[models.JobKind]*models.Progress
	logger   arbor.ILogger
}

func NewRunner(logger arbor.ILogger) *Runner {
	return &Runner{
		progress: map[models.JobKind]*models.Progress{
			models.JobKindCrawl: {Kind: models.JobKindCrawl, State: models.JobIdle},
			models.JobKindEmbed: {Kind: models.JobKindEmbed, State: models.JobIdle},
		},
		logger: logger,
	}
}

// Status returns a race-free snapshot of the given kind's Progress.
func (r *Runner) Status(kind models.JobKind) models.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress[kind].Clone()
}

// ItemResult is what Start's perItem callback reports for a single
// unit of work: success, or a per-item error absorbed into Progress
// (never propagated as a Start-level failure).
type ItemResult struct {
	Err error
}

// Start launches a job of kind over items, calling perItem
// sequentially in the order supplied (§4.6's no-reorder rule) on a
// background goroutine. It fails immediately with Busy if a job of
// that kind is already running, without altering existing progress.
// perItem errors are absorbed into Progress.Errors and do not stop
// the run; an error returned directly from Start (other than Busy)
// indicates a fatal condition discovered before any item ran. The job
// keeps ctx's values but not its cancellation, so it outlives a
// request-scoped ctx that started it.
//
// onComplete, if non-nil, runs once after every item has been
// processed (whether or not the run ended with errors), on the same
// background goroutine. Callers use it to refresh derived state that
// only the run itself knows is now stale, such as rebuilding an
// in-memory index after an embed job.
func (r *Runner) Start(ctx context.Context, kind models.JobKind, items []string, perItem func(ctx context.Context, item string) ItemResult, onComplete func(ctx context.Context)) error {
	r.mu.Lock()
	p := r.progress[kind]
	if p.State == models.JobRunning {
		r.mu.Unlock()
		return models.ErrBusy(string(kind) + " job already running")
	}
	now := time.Now().UTC()
	*p = models.Progress{
		Kind:      kind,
		State:     models.JobRunning,
		Total:     len(items),
		StartedAt: &now,
	}
	r.mu.Unlock()

	go r.run(context.WithoutCancel(ctx), kind, items, perItem, onComplete)
	return nil
}

func (r *Runner) run(ctx context.Context, kind models.JobKind, items []string, perItem func(ctx context.Context, item string) ItemResult, onComplete func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.finishError(kind, "panic during job execution")
			r.logger.Error().Interface("panic", rec).Str("kind", string(kind)).Msg("job runner recovered from panic")
		}
	}()

	for _, item := range items {
		r.mu.Lock()
		r.progress[kind].CurrentItem = item
		r.mu.Unlock()

		result := perItem(ctx, item)

		r.mu.Lock()
		p := r.progress[kind]
		p.Completed++
		if result.Err != nil {
			p.Errors++
			r.logger.Warn().Err(result.Err).Str("kind", string(kind)).Str("item", item).Msg("job item failed")
		} else {
			p.Success++
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	now := time.Now().UTC()
	p := r.progress[kind]
	p.State = models.JobCompleted
	p.CurrentItem = ""
	p.FinishedAt = &now
	r.mu.Unlock()

	if onComplete != nil {
		onComplete(ctx)
	}
}

func (r *Runner) finishError(kind models.JobKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	p := r.progress[kind]
	p.State = models.JobError
	p.ErrorMessage = message
	p.FinishedAt = &now
}
