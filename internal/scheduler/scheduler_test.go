package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
)

type fakeStore struct {
	store.Store
	mu       sync.Mutex
	sessions map[string]*model.Session
	jobs     []*model.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*model.Session{}}
}

func (f *fakeStore) FindSessionByDomain(_ context.Context, domain string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[domain]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = "session-" + s.Domain
	f.sessions[s.Domain] = s
	return s.ID, nil
}

func (f *fakeStore) CreateJob(_ context.Context, j *model.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j.ID = "job-" + j.URL
	f.jobs = append(f.jobs, j)
	return j.ID, nil
}

func (f *fakeStore) PurgeStaleJobs(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

type fakeTicker struct {
	runs    int32
	stopped int32
}

func (t *fakeTicker) Run(context.Context) { atomic.AddInt32(&t.runs, 1) }
func (t *fakeTicker) Stop()               { atomic.AddInt32(&t.stopped, 1) }

func TestDiscoverySeedsRootJobWhenNoSitemapsFound(t *testing.T) {
	fs := newFakeStore()
	flags := NewFlags()
	s := New(fs, []Site{{Domain: "example.invalid", MaxDepth: 2, PageLimit: 100}}, &fakeTicker{}, flags)

	s.runDiscovery(context.Background())

	require.Len(t, fs.jobs, 1)
	assert.Equal(t, "https://example.invalid/", fs.jobs[0].URL)
	assert.Equal(t, 0, fs.jobs[0].Depth)
}

func TestDiscoverySkipsSiteWithFreshSession(t *testing.T) {
	fs := newFakeStore()
	fs.sessions["example.invalid"] = &model.Session{ID: "existing", Domain: "example.invalid", CreatedAt: time.Now()}
	flags := NewFlags()
	s := New(fs, []Site{{Domain: "example.invalid"}}, &fakeTicker{}, flags)

	s.runDiscovery(context.Background())

	assert.Empty(t, fs.jobs)
}

func TestDiscoveryReRunsForStaleSession(t *testing.T) {
	fs := newFakeStore()
	fs.sessions["example.invalid"] = &model.Session{ID: "old", Domain: "example.invalid", CreatedAt: time.Now().Add(-48 * time.Hour)}
	flags := NewFlags()
	s := New(fs, []Site{{Domain: "example.invalid"}}, &fakeTicker{}, flags)

	s.runDiscovery(context.Background())

	assert.NotEmpty(t, fs.jobs)
}

func TestRunDiscoverySkippedWhenForceStopped(t *testing.T) {
	fs := newFakeStore()
	flags := NewFlags()
	flags.SetForceStop(true)
	s := New(fs, []Site{{Domain: "example.invalid"}}, &fakeTicker{}, flags)

	s.runDiscovery(context.Background())

	assert.Empty(t, fs.jobs)
}

func TestRunQueueTickDelegatesToTickerWhenEnabled(t *testing.T) {
	fs := newFakeStore()
	flags := NewFlags()
	ft := &fakeTicker{}
	s := New(fs, nil, ft, flags)

	s.runQueueTick(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&ft.runs))
}

func TestRunQueueTickSkipsWhenCrawlDisabled(t *testing.T) {
	fs := newFakeStore()
	flags := NewFlags()
	flags.CrawlEnabled = false
	ft := &fakeTicker{}
	s := New(fs, nil, ft, flags)

	s.runQueueTick(context.Background())

	assert.EqualValues(t, 0, atomic.LoadInt32(&ft.runs))
}

func TestFlagsResumeClearsAllControls(t *testing.T) {
	flags := NewFlags()
	flags.CrawlEnabled = false
	flags.IndexEnabled = false
	flags.SetForceStop(true)
	flags.ForcePauseIndex = true

	flags.Resume()

	snap := flags.snapshot()
	assert.True(t, snap.CrawlEnabled)
	assert.True(t, snap.IndexEnabled)
	assert.False(t, snap.ForceStop)
	assert.False(t, snap.ForcePauseIndex)
}
