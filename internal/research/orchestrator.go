package research

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linkmill/partners-cli/internal/model"
)

// DefaultBatchSize bounds how many research calls are in flight at once.
const DefaultBatchSize = 2

// ErrEmptySelection rejects a run with nothing to research; no network
// call is made.
var ErrEmptySelection = eris.New("research: no items selected")

// ErrAlreadyRunning rejects a duplicate submission while a run is in
// flight.
var ErrAlreadyRunning = eris.New("research: a run is already in progress")

// Notifier receives user-facing progress events. Progress fires after
// every batch; Degraded additionally fires for batches that contained
// failures; Done fires exactly once when the run finalizes.
type Notifier interface {
	Progress(completed, total int)
	Degraded(failures int)
	Done(run *model.Run)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Progress(int, int) {}
func (NopNotifier) Degraded(int)      {}
func (NopNotifier) Done(*model.Run)   {}

// Orchestrator partitions selected items into fixed-size batches and
// researches them: batches run sequentially, items within a batch
// concurrently, and one item's failure never aborts its siblings or the
// run. A single orchestrator runs one job at a time.
type Orchestrator struct {
	provider  Provider
	seo       Generator // may be nil
	notifier  Notifier
	batchSize int
	now       func() time.Time

	running atomic.Bool
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithBatchSize overrides the per-batch item count.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithNotifier sets the progress event sink.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithSEO sets an optional generator that replaces the deterministic SEO
// fields on each pack.
func WithSEO(g Generator) Option {
	return func(o *Orchestrator) { o.seo = g }
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator around a research provider.
func New(provider Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		notifier:  NopNotifier{},
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a run is in flight. This is the caller-visible
// loading flag; it is reset on every exit path of Run.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// itemResult pairs a settled item with its input position so the final
// pack order matches the selection order regardless of which call in a
// batch finished first.
type itemResult struct {
	index int
	pack  *model.ResearchPack
	fail  *model.FailedItem
}

// Run researches every item and returns the consolidated run. The run
// always reaches completion once batching starts — even if every single
// item fails — so the caller can hand off whatever was produced. Context
// cancellation is checked between batches and propagated into per-item
// calls.
func (o *Orchestrator) Run(ctx context.Context, items []model.Product) (*model.Run, error) {
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	projectID := uuid.New().String()
	log := zap.L().With(zap.String("project_id", projectID))

	run := &model.Run{
		ProjectID: projectID,
		Items:     items,
		Status:    model.RunStatusPending,
		Total:     len(items),
		CreatedAt: o.now(),
		UpdatedAt: o.now(),
	}
	run.Start(o.now())

	log.Info("research run started",
		zap.Int("items", len(items)),
		zap.Int("batch_size", o.batchSize),
	)

	var results []itemResult
	processed := 0

	for start := 0; start < len(items); start += o.batchSize {
		if err := ctx.Err(); err != nil {
			run.Fail(o.now())
			return run, eris.Wrap(err, "research: run cancelled")
		}

		end := min(start+o.batchSize, len(items))
		batch := o.runBatch(ctx, projectID, items[start:end], start)
		results = append(results, batch...)
		processed += len(batch)

		failures := 0
		for _, r := range batch {
			if r.fail != nil {
				failures++
			}
		}

		o.notifier.Progress(processed, len(items))
		if failures > 0 {
			o.notifier.Degraded(failures)
		}
	}

	// Arrival order within a batch races; restore selection order before
	// the handoff.
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	for _, r := range results {
		if r.pack != nil {
			run.AddPack(*r.pack)
		} else {
			run.AddFailure(*r.fail)
		}
	}

	run.Complete(o.now())
	o.notifier.Done(run)

	log.Info("research run complete",
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Int64("processing_ms", run.ProcessingMS),
	)
	return run, nil
}

// runBatch dispatches every item in the batch concurrently and waits for
// all of them to settle. Failures are contained per item: the goroutine
// records them and returns nil, so sibling requests keep flying.
func (o *Orchestrator) runBatch(ctx context.Context, projectID string, batch []model.Product, offset int) []itemResult {
	var (
		mu      sync.Mutex
		results []itemResult
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range batch {
		g.Go(func() error {
			res := o.researchItem(gctx, projectID, item, offset+i)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil // never abort the batch on an item failure
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) researchItem(ctx context.Context, projectID string, item model.Product, index int) itemResult {
	log := zap.L().With(
		zap.String("project_id", projectID),
		zap.String("item_id", item.SelectionID()),
	)

	raw, err := o.provider.Research(ctx, Request{ProjectID: projectID, Item: item})
	if err != nil {
		log.Warn("item research failed", zap.Error(err))
		fail := model.FailedItem{Item: item, Error: err.Error()}
		var insufficient *InsufficientSourcesError
		if errors.As(err, &insufficient) {
			fail.MissingFields = insufficient.MissingFields
			fail.SuggestedQueries = insufficient.SuggestedQueries
		}
		return itemResult{index: index, fail: &fail}
	}

	pack := BuildPack(item, *raw)
	if o.seo != nil {
		if err := o.seo.Apply(ctx, &pack); err != nil {
			// SEO enrichment is best-effort; the deterministic fields stand.
			log.Warn("seo generation failed, keeping defaults", zap.Error(err))
		}
	}

	log.Debug("item research complete")
	return itemResult{index: index, pack: &pack}
}
