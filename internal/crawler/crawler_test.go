package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparent-search/crawlcore/internal/events"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/spam"
	"github.com/transparent-search/crawlcore/internal/store"
)

type fakeStore struct {
	store.Store
	jobs     map[string]*model.Job
	metadata map[string]*model.PageMetadata
	updates  []store.JobUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*model.Job{}, metadata: map[string]*model.PageMetadata{}}
}

func (f *fakeStore) CreateJob(_ context.Context, job *model.Job) (string, error) {
	job.ID = "child-" + job.URL
	f.jobs[job.ID] = job
	return job.ID, nil
}

func (f *fakeStore) UpdateJob(_ context.Context, id string, u store.JobUpdate) error {
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeStore) ListJobsByDomain(_ context.Context, domain string) ([]model.Job, error) {
	var out []model.Job
	for _, j := range f.jobs {
		if j.Domain == domain {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMetadataByJob(_ context.Context, jobID string) (*model.PageMetadata, error) {
	pm, ok := f.metadata[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return pm, nil
}

func TestPathOfDefaultsToRoot(t *testing.T) {
	assert.Equal(t, "/", pathOf("https://example.com"))
	assert.Equal(t, "/blog/post", pathOf("https://example.com/blog/post"))
	assert.Equal(t, "/", pathOf("://bad-url"))
}

func TestCacheKeyFormat(t *testing.T) {
	assert.Equal(t, "score:example.com:https://example.com/x", cacheKey("score", "example.com", "https://example.com/x"))
}

func TestSignalTypesExtractsTypeField(t *testing.T) {
	signals := []spam.Signal{{Type: "link_farm"}, {Type: "cms_anomaly"}}
	assert.Equal(t, []string{"link_farm", "cms_anomaly"}, signalTypes(signals))
}

func TestEnqueueChildrenCapsAtTwentyAndFiltersExternalHosts(t *testing.T) {
	fs := newFakeStore()
	p := &Pipeline{store: fs}

	job := &model.Job{
		ID:        "parent",
		SessionID: "s1",
		Domain:    "example.com",
		URL:       "https://example.com/",
		Depth:     0,
		MaxDepth:  3,
		Priority:  1,
		CreatedAt: time.Now(),
	}

	anchors := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		anchors = append(anchors, "https://example.com/page"+string(rune('a'+i)))
	}
	anchors = append(anchors, "https://other.com/off-site")

	children := p.enqueueChildren(context.Background(), job, anchors)
	require.Len(t, children, maxChildrenPerPage)
	assert.Len(t, fs.jobs, maxChildrenPerPage)
	for _, j := range fs.jobs {
		assert.Equal(t, 1, j.Depth)
		assert.Equal(t, job.MaxDepth, j.MaxDepth)
	}
}

func TestDomainSpamInputsAccumulatesOnlyCompletedJobsOnDomain(t *testing.T) {
	fs := newFakeStore()
	fs.jobs["job-1"] = &model.Job{
		ID: "job-1", Domain: "example.com", URL: "https://example.com/a",
		Status: model.JobCompleted, WordCount: 100, InternalLinksCount: 2, ExternalLinksCount: 1,
	}
	fs.metadata["job-1"] = &model.PageMetadata{
		BodyMarkdown:  "hello world",
		InternalLinks: []string{"https://example.com/b"},
		ExternalLinks: []string{"https://other.com/x"},
	}
	fs.jobs["job-2"] = &model.Job{ID: "job-2", Domain: "example.com", URL: "https://example.com/c", Status: model.JobPending}
	fs.jobs["job-3"] = &model.Job{ID: "job-3", Domain: "other-domain.com", URL: "https://other-domain.com/a", Status: model.JobCompleted}

	p := &Pipeline{store: fs}
	pages, linkGraph := p.domainSpamInputs(context.Background(), "example.com")

	require.Len(t, pages, 1)
	assert.Equal(t, "https://example.com/a", pages[0].URL)
	assert.Equal(t, 100, pages[0].WordCount)
	assert.Equal(t, []string{"https://example.com/b", "https://other.com/x"}, linkGraph["https://example.com/a"])
}

func TestPublishIsNoOpWithoutEventBus(t *testing.T) {
	p := &Pipeline{}
	assert.NotPanics(t, func() {
		p.publish(events.Event{Type: events.TypeCompleted, JobID: "job-1"})
	})
}

func TestNewAppliesEventsOption(t *testing.T) {
	p := New(newFakeStore(), nil, WithEvents(nil))
	assert.Nil(t, p.bus)
}
