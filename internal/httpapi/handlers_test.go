package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/scheduler"
	"github.com/transparent-search/crawlcore/internal/store"
)

const testAdminToken = "test-token"

type fakeStore struct {
	store.Store
	sessions map[string]*model.Session
	byDomain map[string]string
	jobs     map[string]*model.Job
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*model.Session{},
		byDomain: map[string]string{},
		jobs:     map[string]*model.Job{},
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return time.Unix(int64(f.nextID), 0).Format("id-20060102150405")
}

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) (string, error) {
	id := f.genID()
	cp := *s
	cp.ID = id
	f.sessions[id] = &cp
	f.byDomain[s.Domain] = id
	return id, nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindSessionByDomain(_ context.Context, domain string) (*model.Session, error) {
	if id, ok := f.byDomain[domain]; ok {
		return f.sessions[id], nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateJob(_ context.Context, j *model.Job) (string, error) {
	id := f.genID()
	cp := *j
	cp.ID = id
	f.jobs[id] = &cp
	return id, nil
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*model.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, store.ErrNotFound
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

func (f *fakeStore) ListJobsByDomain(_ context.Context, domain string) ([]model.Job, error) {
	var out []model.Job
	for _, j := range f.jobs {
		if j.Domain == domain {
			out = append(out, *j)
		}
	}
	return out, nil
}

func newTestServer(fs *fakeStore) (*Server, *scheduler.Flags) {
	flags := scheduler.NewFlags()
	s := New(fs, indexer.New(fs), flags, nil, testAdminToken)
	return s, flags
}

func authed(req *http.Request) *http.Request {
	q := req.URL.Query()
	q.Set("admin_token", testAdminToken)
	req.URL.RawQuery = q.Encode()
	return req
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthAllowsHealthWithoutToken(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartSessionCreatesNewSessionWithDefaults(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	body := bytes.NewBufferString(`{"domain":"example.com"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/sessions", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp.Domain)
	assert.Equal(t, 1000, resp.PageLimit)
	assert.Equal(t, 2, resp.MaxDepth)
}

func TestStartSessionReusesExistingByDefault(t *testing.T) {
	fs := newFakeStore()
	s, _ := newTestServer(fs)
	existingID, err := fs.CreateSession(context.Background(), &model.Session{Domain: "example.com", PageLimit: 50, MaxDepth: 1})
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"domain":"example.com"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/sessions", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, existingID, resp.SessionID)
	assert.Equal(t, 50, resp.PageLimit)
}

func TestStartSessionRejectsInvalidDomain(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	body := bytes.NewBufferString(`{"domain":""}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/sessions", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobRequiresSessionAndURL(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	body := bytes.NewBufferString(`{"session_id":"","url":"not-a-url"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/jobs", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForceStopThenResumeRoundTrip(t *testing.T) {
	s, flags := newTestServer(newFakeStore())

	req := authed(httptest.NewRequest(http.MethodPost, "/admin/force-stop", nil))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, flags.Snapshot().ForceStop)

	req = authed(httptest.NewRequest(http.MethodPost, "/admin/resume", nil))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, flags.Snapshot().ForceStop)
}

func TestForcePauseIndexSetsFlagOnly(t *testing.T) {
	s, flags := newTestServer(newFakeStore())
	req := authed(httptest.NewRequest(http.MethodPost, "/admin/force-pause-index", nil))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := flags.Snapshot()
	assert.True(t, snap.ForcePauseIndex)
	assert.False(t, snap.ForceStop)
}

func TestBulkImportGroupsURLsByHost(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	body := bytes.NewBufferString("https://a.example.com/1\nhttps://a.example.com/2\nhttps://b.example.com/1\nnot a url\n")
	req := authed(httptest.NewRequest(http.MethodPost, "/import?format=txt", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BulkImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.SessionsCreated)
	assert.Equal(t, 3, resp.JobsCreated)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 2, resp.PerHost["a.example.com"])
	assert.Equal(t, 1, resp.PerHost["b.example.com"])
}

func TestBulkImportJSONFormat(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	body := bytes.NewBufferString(`["https://c.example.com/x", "https://c.example.com/y"]`)
	req := authed(httptest.NewRequest(http.MethodPost, "/import?format=json", body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BulkImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.SessionsCreated)
	assert.Equal(t, 2, resp.JobsCreated)
	assert.Equal(t, 2, resp.PerHost["c.example.com"])
}

func TestWebSocketReturnsServiceUnavailableWithoutBus(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	req := authed(httptest.NewRequest(http.MethodGet, "/ws/job-123", nil))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
