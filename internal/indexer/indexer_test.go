package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
)

type fakeStore struct {
	store.Store
	jobs          map[string]*model.Job
	metadata      map[string]*model.PageMetadata
	analyses      map[string]*model.PageAnalysis
	searchRecords map[string]*model.SearchRecord
	updates       map[string]store.JobUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:          map[string]*model.Job{},
		metadata:      map[string]*model.PageMetadata{},
		analyses:      map[string]*model.PageAnalysis{},
		searchRecords: map[string]*model.SearchRecord{},
		updates:       map[string]store.JobUpdate{},
	}
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*model.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetMetadataByJob(_ context.Context, jobID string) (*model.PageMetadata, error) {
	if m, ok := f.metadata[jobID]; ok {
		return m, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetAnalysisByJob(_ context.Context, jobID string) (*model.PageAnalysis, error) {
	if a, ok := f.analyses[jobID]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetSearchRecord(_ context.Context, url string) (*model.SearchRecord, error) {
	if r, ok := f.searchRecords[url]; ok {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpsertSearchRecord(_ context.Context, r *model.SearchRecord) error {
	f.searchRecords[r.URL] = r
	return nil
}

func (f *fakeStore) AppendImages(context.Context, string, []model.ImageRef) error { return nil }
func (f *fakeStore) UpsertFavicon(context.Context, *model.Favicon) error          { return nil }

func (f *fakeStore) UpdateJob(_ context.Context, id string, u store.JobUpdate) error {
	f.updates[id] = u
	return nil
}

func (f *fakeStore) ListJobsBySession(_ context.Context, sessionID string) ([]model.Job, error) {
	var out []model.Job
	for _, j := range f.jobs {
		if j.SessionID == sessionID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func richJob(id string) (*model.Job, *model.PageMetadata, *model.PageAnalysis) {
	job := &model.Job{ID: id, SessionID: "s1", Domain: "example.com", URL: "https://example.com/blog/great-post", Status: model.JobCompleted, CreatedAt: time.Now()}
	meta := &model.PageMetadata{
		ID: "m-" + id, JobID: id, URL: job.URL,
		Title:             "A Genuinely Useful Long-Form Blog Post About Testing",
		Description:       "An in-depth look at testing strategies for Go services.",
		OpenGraph:         map[string]string{"title": "A Genuinely Useful Long-Form Blog Post", "description": "In-depth testing strategies."},
		H1:                []string{"A Genuinely Useful Long-Form Blog Post"},
		H2:                []string{"Intro", "Body", "Conclusion"},
		HasStructuredData: true,
		BodyMarkdown:      stringsRepeat("word ", 200),
	}
	score := 85.0
	analysis := &model.PageAnalysis{ID: "a-" + id, JobID: id, URL: job.URL, TotalScore: score}
	return job, meta, analysis
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func TestIndexJobAcceptsHighQualityPage(t *testing.T) {
	fs := newFakeStore()
	job, meta, analysis := richJob("job1")
	fs.jobs[job.ID] = job
	fs.metadata[job.ID] = meta
	fs.analyses[job.ID] = analysis

	ix := New(fs)
	outcome, score, err := ix.IndexJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, outcome)
	assert.Greater(t, score, 0.0)

	record, ok := fs.searchRecords[job.URL]
	require.True(t, ok)
	assert.Equal(t, "og:title", record.TitleSource)
	require.NotNil(t, fs.updates[job.ID].Indexed)
	assert.True(t, *fs.updates[job.ID].Indexed)
}

func TestIndexJobRejectsThinContent(t *testing.T) {
	fs := newFakeStore()
	job := &model.Job{ID: "job2", SessionID: "s1", Domain: "example.com", URL: "https://example.com/x", Status: model.JobCompleted, CreatedAt: time.Now()}
	meta := &model.PageMetadata{ID: "m2", JobID: job.ID, URL: job.URL, Title: "hi"}
	analysis := &model.PageAnalysis{ID: "a2", JobID: job.ID, URL: job.URL, TotalScore: 10}
	fs.jobs[job.ID] = job
	fs.metadata[job.ID] = meta
	fs.analyses[job.ID] = analysis

	ix := New(fs)
	outcome, _, err := ix.IndexJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	_, indexed := fs.searchRecords[job.URL]
	assert.False(t, indexed)
	assert.NotNil(t, fs.updates[job.ID].Rejected)
	assert.True(t, *fs.updates[job.ID].Rejected)
}

func TestIndexJobRejectsIncompleteJob(t *testing.T) {
	fs := newFakeStore()
	job := &model.Job{ID: "job3", Status: model.JobPending}
	fs.jobs[job.ID] = job

	_, _, err := New(fs).IndexJob(context.Background(), job.ID)
	assert.Error(t, err)
}

func TestReindexSessionSkipsExistingWhenRequested(t *testing.T) {
	fs := newFakeStore()
	job, meta, analysis := richJob("job4")
	fs.jobs[job.ID] = job
	fs.metadata[job.ID] = meta
	fs.analyses[job.ID] = analysis
	fs.searchRecords[job.URL] = &model.SearchRecord{URL: job.URL}

	result, err := New(fs).ReindexSession(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Indexed)
}

func TestReindexSessionComputesQualityStats(t *testing.T) {
	fs := newFakeStore()
	for _, id := range []string{"j1", "j2"} {
		job, meta, analysis := richJob(id)
		fs.jobs[job.ID] = job
		fs.metadata[job.ID] = meta
		fs.analyses[job.ID] = analysis
	}

	result, err := New(fs).ReindexSession(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Indexed)
	assert.Greater(t, result.MeanQualityScore, 0.0)
	assert.Greater(t, result.MedianQualityScore, 0.0)
}
