package research

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/linkmill/partners-cli/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockProvider counts calls and tracks peak concurrency.
type mockProvider struct {
	mu          sync.Mutex
	calls       []string
	inFlight    int32
	maxInFlight int32
	fn          func(req Request) (*Raw, error)
}

func (m *mockProvider) Research(ctx context.Context, req Request) (*Raw, error) {
	cur := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&m.maxInFlight)
		if cur <= peak || atomic.CompareAndSwapInt32(&m.maxInFlight, peak, cur) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, req.Item.SelectionID())
	m.mu.Unlock()

	if m.fn != nil {
		return m.fn(req)
	}
	return &Raw{Features: []string{"feature"}}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// recordingNotifier captures progress events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	progress [][2]int
	degraded []int
	done     int
}

func (r *recordingNotifier) Progress(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{completed, total})
}

func (r *recordingNotifier) Degraded(failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, failures)
}

func (r *recordingNotifier) Done(*model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
}

func testItems(n int) []model.Product {
	items := make([]model.Product, n)
	for i := range items {
		items[i] = model.Product{
			ProductID: int64(i + 1),
			Name:      "상품",
			Price:     int64((i + 1) * 1000),
			URL:       "https://www.coupang.com/vp/products/1",
		}
	}
	return items
}

func TestRun_EmptySelectionRejectedBeforeAnyCall(t *testing.T) {
	provider := &mockProvider{}
	o := New(provider)

	_, err := o.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptySelection)
	assert.Zero(t, provider.callCount())
	assert.False(t, o.Running())
}

func TestRun_EachItemDispatchedExactlyOnce(t *testing.T) {
	provider := &mockProvider{}
	o := New(provider, WithBatchSize(2))

	run, err := o.Run(context.Background(), testItems(5))
	require.NoError(t, err)

	assert.Equal(t, 5, provider.callCount())
	assert.Equal(t, 5, run.Succeeded)
	assert.Zero(t, run.Failed)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	seen := make(map[string]int)
	for _, id := range provider.calls {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "item %s dispatched more than once", id)
	}
}

func TestRun_ConcurrencyBoundedByBatchSize(t *testing.T) {
	provider := &mockProvider{
		fn: func(Request) (*Raw, error) {
			time.Sleep(10 * time.Millisecond)
			return &Raw{}, nil
		},
	}
	o := New(provider, WithBatchSize(2))

	_, err := o.Run(context.Background(), testItems(6))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&provider.maxInFlight), int32(2))
}

func TestRun_PartialFailureContained(t *testing.T) {
	provider := &mockProvider{
		fn: func(req Request) (*Raw, error) {
			if req.Item.ProductID == 2 {
				return nil, eris.New("research service returned 500")
			}
			return &Raw{Features: []string{"f"}}, nil
		},
	}
	notifier := &recordingNotifier{}
	o := New(provider, WithBatchSize(2), WithNotifier(notifier))

	run, err := o.Run(context.Background(), testItems(2))
	require.NoError(t, err, "an item failure must not fail the run")

	require.Len(t, run.Packs, 1)
	assert.Equal(t, "1", run.Packs[0].ItemID)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, int64(2), run.Failures[0].Item.ProductID)
	assert.Contains(t, run.Failures[0].Error, "500")
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, []int{1}, notifier.degraded)
}

func TestRun_TotalFailureStillFinalizes(t *testing.T) {
	provider := &mockProvider{
		fn: func(Request) (*Raw, error) { return nil, eris.New("down") },
	}
	notifier := &recordingNotifier{}
	o := New(provider, WithBatchSize(2), WithNotifier(notifier))

	run, err := o.Run(context.Background(), testItems(4))
	require.NoError(t, err)

	assert.Empty(t, run.Packs)
	assert.Equal(t, 4, run.Failed)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 1, notifier.done, "handoff happens even with an empty result set")
}

func TestRun_ProgressEmittedPerBatch(t *testing.T) {
	provider := &mockProvider{}
	notifier := &recordingNotifier{}
	o := New(provider, WithBatchSize(2), WithNotifier(notifier))

	_, err := o.Run(context.Background(), testItems(5))
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, notifier.progress)
	assert.Empty(t, notifier.degraded)
	assert.Equal(t, 1, notifier.done)
}

func TestRun_PacksRestoredToSelectionOrder(t *testing.T) {
	// The first item of each batch sleeps, so the second item settles
	// first; the final pack order must still match input order.
	provider := &mockProvider{
		fn: func(req Request) (*Raw, error) {
			if req.Item.ProductID%2 == 1 {
				time.Sleep(15 * time.Millisecond)
			}
			return &Raw{}, nil
		},
	}
	o := New(provider, WithBatchSize(2))

	run, err := o.Run(context.Background(), testItems(4))
	require.NoError(t, err)

	require.Len(t, run.Packs, 4)
	for i, pack := range run.Packs {
		assert.Equal(t, testItems(4)[i].SelectionID(), pack.ItemID)
	}
}

func TestRun_DuplicateSubmissionRejected(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		fn: func(Request) (*Raw, error) {
			<-release
			return &Raw{}, nil
		},
	}
	o := New(provider)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = o.Run(context.Background(), testItems(1))
	}()

	require.Eventually(t, o.Running, time.Second, time.Millisecond)

	_, err := o.Run(context.Background(), testItems(1))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	wg.Wait()
	assert.False(t, o.Running(), "loading flag reset after the run")
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mockProvider{
		fn: func(Request) (*Raw, error) {
			cancel() // the first batch cancels the run
			return &Raw{}, nil
		},
	}
	o := New(provider, WithBatchSize(2))

	run, err := o.Run(ctx, testItems(6))
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, 2, provider.callCount(), "later batches never start")
	assert.False(t, o.Running())
}

func TestRun_InsufficientSourcesRecordedOnFailure(t *testing.T) {
	provider := &mockProvider{
		fn: func(Request) (*Raw, error) {
			return nil, &InsufficientSourcesError{
				MissingFields:    []string{"reviews.rating_avg"},
				SuggestedQueries: []string{"제조사 공식 모델명"},
			}
		},
	}
	o := New(provider)

	run, err := o.Run(context.Background(), testItems(1))
	require.NoError(t, err)

	require.Len(t, run.Failures, 1)
	assert.Equal(t, []string{"reviews.rating_avg"}, run.Failures[0].MissingFields)
	assert.Equal(t, []string{"제조사 공식 모델명"}, run.Failures[0].SuggestedQueries)
}

type failingSEO struct{}

func (failingSEO) Apply(context.Context, *model.ResearchPack) error {
	return eris.New("seo provider down")
}

func TestRun_SEOFailureKeepsDeterministicFields(t *testing.T) {
	provider := &mockProvider{}
	o := New(provider, WithSEO(failingSEO{}))

	run, err := o.Run(context.Background(), testItems(1))
	require.NoError(t, err)

	require.Len(t, run.Packs, 1)
	assert.NotEmpty(t, run.Packs[0].MetaTitle)
	assert.NotEmpty(t, run.Packs[0].Slug)
}

func TestRun_FreshProjectIDPerRun(t *testing.T) {
	provider := &mockProvider{}
	o := New(provider)

	first, err := o.Run(context.Background(), testItems(1))
	require.NoError(t, err)
	second, err := o.Run(context.Background(), testItems(1))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ProjectID)
	assert.NotEqual(t, first.ProjectID, second.ProjectID)
}

func TestRun_ProcessingTimeRecorded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * 100 * time.Millisecond)
	}

	o := New(&mockProvider{}, withClock(clock))
	run, err := o.Run(context.Background(), testItems(1))
	require.NoError(t, err)

	assert.Positive(t, run.ProcessingMS)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)
}
