package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
)

type queueStore struct {
	store.Store
	mu      sync.Mutex
	pending []*model.Job
}

func (q *queueStore) ClaimNextPending(context.Context) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, store.ErrNotFound
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, nil
}

type countingExecutor struct {
	processed int32
	delay     time.Duration
}

func (c *countingExecutor) Process(ctx context.Context, job *model.Job) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	atomic.AddInt32(&c.processed, 1)
	return nil
}

func TestPoolProcessesAllQueuedJobsWithinConcurrencyBound(t *testing.T) {
	jobs := make([]*model.Job, 10)
	for i := range jobs {
		jobs[i] = &model.Job{ID: "job", URL: "https://example.com"}
	}
	qs := &queueStore{pending: jobs}
	exec := &countingExecutor{}

	pool := New(qs, exec, WithConcurrency(2), WithPollInterval(20*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	assert.Equal(t, int32(10), atomic.LoadInt32(&exec.processed))
}

func TestPoolStopPreventsFurtherLeasing(t *testing.T) {
	qs := &queueStore{pending: []*model.Job{{ID: "only"}}}
	exec := &countingExecutor{delay: 50 * time.Millisecond}
	pool := New(qs, exec, WithConcurrency(1), WithPollInterval(10*time.Millisecond), WithShutdownGrace(200*time.Millisecond))

	done := make(chan struct{})
	go func() {
		pool.Run(context.Background())
		close(done)
	}()

	time.Sleep(15 * time.Millisecond)
	pool.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop within expected time")
	}
}

func TestForceStopDropsInFlightQuickly(t *testing.T) {
	qs := &queueStore{}
	exec := &countingExecutor{}
	pool := New(qs, exec, WithConcurrency(1), WithShutdownGrace(50*time.Millisecond))

	start := time.Now()
	pool.ForceStop()
	require.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestPoolDispatchesWithoutPanicWhenNoEventBusConfigured(t *testing.T) {
	jobs := []*model.Job{{ID: "only", URL: "https://example.com"}}
	qs := &queueStore{pending: jobs}
	exec := &countingExecutor{}
	pool := New(qs, exec, WithConcurrency(1), WithPollInterval(10*time.Millisecond), WithEvents(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NotPanics(t, func() { pool.Run(ctx) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&exec.processed))
}

type fakeIndexer struct {
	indexed int32
	jobIDs  []string
	mu      sync.Mutex
}

func (f *fakeIndexer) IndexJob(_ context.Context, jobID string) (indexer.Outcome, float64, error) {
	atomic.AddInt32(&f.indexed, 1)
	f.mu.Lock()
	f.jobIDs = append(f.jobIDs, jobID)
	f.mu.Unlock()
	return indexer.OutcomeIndexed, 0.9, nil
}

type fakeGate struct {
	allowed bool
}

func (g *fakeGate) IndexingAllowed() bool { return g.allowed }

func TestPoolIndexesJobAutomaticallyAfterSuccessfulProcess(t *testing.T) {
	jobs := []*model.Job{{ID: "job-1", URL: "https://example.com"}}
	qs := &queueStore{pending: jobs}
	exec := &countingExecutor{}
	ix := &fakeIndexer{}
	pool := New(qs, exec, WithConcurrency(1), WithPollInterval(10*time.Millisecond), WithIndexer(ix), WithIndexGate(&fakeGate{allowed: true}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&ix.indexed))
	assert.Equal(t, []string{"job-1"}, ix.jobIDs)
}

func TestPoolSkipsAutomaticIndexingWhenGateDenies(t *testing.T) {
	jobs := []*model.Job{{ID: "job-1", URL: "https://example.com"}}
	qs := &queueStore{pending: jobs}
	exec := &countingExecutor{}
	ix := &fakeIndexer{}
	pool := New(qs, exec, WithConcurrency(1), WithPollInterval(10*time.Millisecond), WithIndexer(ix), WithIndexGate(&fakeGate{allowed: false}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&ix.indexed))
}

type failingExecutor struct{}

func (failingExecutor) Process(context.Context, *model.Job) error { return assert.AnError }

func TestPoolDoesNotIndexFailedJobs(t *testing.T) {
	jobs := []*model.Job{{ID: "job-1", URL: "https://example.com"}}
	qs := &queueStore{pending: jobs}
	ix := &fakeIndexer{}
	pool := New(qs, failingExecutor{}, WithConcurrency(1), WithPollInterval(10*time.Millisecond), WithIndexer(ix), WithIndexGate(&fakeGate{allowed: true}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&ix.indexed))
}
