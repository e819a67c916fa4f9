package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transparent-search/crawlcore/internal/crawlerr"
	"github.com/transparent-search/crawlcore/internal/model"
)

// ErrNotFound is returned by single-document lookups that miss.
var ErrNotFound = errors.New("store: not found")

// Mongo is the mongo-driver backed Store, grounded on the teacher's
// services/database.go connection and per-collection helper pattern.
type Mongo struct {
	client        *mongo.Client
	sessions      *mongo.Collection
	jobs          *mongo.Collection
	analyses      *mongo.Collection
	metadata      *mongo.Collection
	searchRecords *mongo.Collection
	favicons      *mongo.Collection
}

// NewMongo connects to mongoURI, selects dbName, and ensures the indexes
// spec.md §6 requires exist.
func NewMongo(ctx context.Context, mongoURI, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	db := client.Database(dbName)
	m := &Mongo{
		client:        client,
		sessions:      db.Collection("sessions"),
		jobs:          db.Collection("jobs"),
		analyses:      db.Collection("analyses"),
		metadata:      db.Collection("metadata"),
		searchRecords: db.Collection("search_records"),
		favicons:      db.Collection("favicons"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("store: ensure indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.jobs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "priority", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "domain", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := m.searchRecords.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "domain", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := m.searchRecords.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *Mongo) CreateSession(ctx context.Context, session *model.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if _, err := m.sessions.InsertOne(ctx, session); err != nil {
		return "", crawlerr.Wrap(crawlerr.Store, "create session", err)
	}
	return session.ID, nil
}

func (m *Mongo) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		return nil, notFoundOrWrap(err, "get session")
	}
	return &session, nil
}

func (m *Mongo) FindSessionByDomain(ctx context.Context, domain string) (*model.Session, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var session model.Session
	err := m.sessions.FindOne(ctx, bson.M{"domain": domain, "status": bson.M{"$ne": model.SessionFailed}}, opts).Decode(&session)
	if err != nil {
		return nil, notFoundOrWrap(err, "find session by domain")
	}
	return &session, nil
}

func (m *Mongo) UpdateSessionCounters(ctx context.Context, id string, crawledDelta, failedDelta int) error {
	_, err := m.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"crawled_pages": crawledDelta, "failed_pages": failedDelta},
	})
	return crawlerr.Wrap(crawlerr.Store, "update session counters", err)
}

func (m *Mongo) CompleteSession(ctx context.Context, id string) error {
	now := time.Now()
	_, err := m.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": model.SessionCompleted, "completed_at": now},
	})
	return crawlerr.Wrap(crawlerr.Store, "complete session", err)
}

func (m *Mongo) CreateJob(ctx context.Context, job *model.Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, err := m.jobs.InsertOne(ctx, job); err != nil {
		return "", crawlerr.Wrap(crawlerr.Store, "create job", err)
	}
	return job.ID, nil
}

func (m *Mongo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := m.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		return nil, notFoundOrWrap(err, "get job")
	}
	return &job, nil
}

// ClaimNextPending atomically leases the oldest, highest-priority pending
// Job by flipping it to "processing" in one FindOneAndUpdate, avoiding the
// lost-update race a separate find-then-update pair would have under
// concurrent workers.
func (m *Mongo) ClaimNextPending(ctx context.Context) (*model.Job, error) {
	filter := bson.M{"status": model.JobPending}
	update := bson.M{"$set": bson.M{"status": model.JobProcessing, "started_at": time.Now()}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var job model.Job
	err := m.jobs.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		return nil, notFoundOrWrap(err, "claim next pending")
	}
	return &job, nil
}

func (m *Mongo) UpdateJob(ctx context.Context, id string, u JobUpdate) error {
	set := bson.M{}
	setIf(set, "status", u.Status)
	setIf(set, "started_at", u.StartedAt)
	setIf(set, "completed_at", u.CompletedAt)
	setIf(set, "failure_reason", u.FailureReason)
	setIf(set, "page_value_score", u.PageValueScore)
	setIf(set, "word_count", u.WordCount)
	setIf(set, "headings_count", u.HeadingsCount)
	setIf(set, "has_structured_data", u.HasStructuredData)
	setIf(set, "has_og_tags", u.HasOGTags)
	setIf(set, "has_meta_description", u.HasMetaDescription)
	setIf(set, "internal_links_count", u.InternalLinksCount)
	setIf(set, "external_links_count", u.ExternalLinksCount)
	setIf(set, "indexed", u.Indexed)
	setIf(set, "indexed_at", u.IndexedAt)
	setIf(set, "rejected", u.Rejected)
	setIf(set, "reject_reason", u.RejectReason)
	setIf(set, "content_type", u.ContentType)
	setIf(set, "quality_score", u.QualityScore)
	setIf(set, "title_source", u.TitleSource)
	if u.Children != nil {
		set["children"] = u.Children
	}
	if len(set) == 0 {
		return nil
	}

	_, err := m.jobs.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return crawlerr.Wrap(crawlerr.Store, "update job", err)
}

func (m *Mongo) ListJobsBySession(ctx context.Context, sessionID string) ([]model.Job, error) {
	return m.findJobs(ctx, bson.M{"session_id": sessionID})
}

func (m *Mongo) ListJobsByDomain(ctx context.Context, domain string) ([]model.Job, error) {
	return m.findJobs(ctx, bson.M{"domain": domain})
}

func (m *Mongo) findJobs(ctx context.Context, filter bson.M) ([]model.Job, error) {
	cursor, err := m.jobs.Find(ctx, filter)
	if err != nil {
		return nil, crawlerr.Wrap(crawlerr.Store, "list jobs", err)
	}
	defer cursor.Close(ctx)

	var jobs []model.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, crawlerr.Wrap(crawlerr.Store, "decode jobs", err)
	}
	return jobs, nil
}

// PurgeStaleJobs deletes every pending Job created more than olderThan ago;
// the state of the Job's Session is not consulted. It is the Mongo-level
// successor to original_source's
// scripts/cleanup_index.py, called from the Scheduler's discovery loop.
func (m *Mongo) PurgeStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := m.jobs.DeleteMany(ctx, bson.M{
		"status":     model.JobPending,
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, crawlerr.Wrap(crawlerr.Store, "purge stale jobs", err)
	}
	return result.DeletedCount, nil
}

func (m *Mongo) InsertAnalysis(ctx context.Context, analysis *model.PageAnalysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	_, err := m.analyses.InsertOne(ctx, analysis)
	return crawlerr.Wrap(crawlerr.Store, "insert analysis", err)
}

func (m *Mongo) InsertMetadata(ctx context.Context, metadata *model.PageMetadata) error {
	if metadata.ID == "" {
		metadata.ID = uuid.NewString()
	}
	_, err := m.metadata.InsertOne(ctx, metadata)
	return crawlerr.Wrap(crawlerr.Store, "insert metadata", err)
}

func (m *Mongo) GetAnalysisByJob(ctx context.Context, jobID string) (*model.PageAnalysis, error) {
	var analysis model.PageAnalysis
	if err := m.analyses.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&analysis); err != nil {
		return nil, notFoundOrWrap(err, "get analysis by job")
	}
	return &analysis, nil
}

func (m *Mongo) GetMetadataByJob(ctx context.Context, jobID string) (*model.PageMetadata, error) {
	var metadata model.PageMetadata
	if err := m.metadata.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&metadata); err != nil {
		return nil, notFoundOrWrap(err, "get metadata by job")
	}
	return &metadata, nil
}

func (m *Mongo) GetSearchRecord(ctx context.Context, url string) (*model.SearchRecord, error) {
	var record model.SearchRecord
	if err := m.searchRecords.FindOne(ctx, bson.M{"_id": url}).Decode(&record); err != nil {
		return nil, notFoundOrWrap(err, "get search record")
	}
	return &record, nil
}

func (m *Mongo) UpsertSearchRecord(ctx context.Context, record *model.SearchRecord) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := m.searchRecords.ReplaceOne(ctx, bson.M{"_id": record.URL}, record, opts)
	return crawlerr.Wrap(crawlerr.Store, "upsert search record", err)
}

func (m *Mongo) AppendImages(ctx context.Context, url string, images []model.ImageRef) error {
	_, err := m.searchRecords.UpdateOne(ctx, bson.M{"_id": url}, bson.M{
		"$set": bson.M{"images": images, "updated_at": time.Now()},
	})
	return crawlerr.Wrap(crawlerr.Store, "append images", err)
}

func (m *Mongo) UpsertFavicon(ctx context.Context, favicon *model.Favicon) error {
	favicon.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := m.favicons.ReplaceOne(ctx, bson.M{"_id": favicon.Domain}, favicon, opts)
	return crawlerr.Wrap(crawlerr.Store, "upsert favicon", err)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func notFoundOrWrap(err error, context string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return crawlerr.Wrap(crawlerr.Store, context, err)
}

func setIf[T any](set bson.M, key string, v *T) {
	if v != nil {
		set[key] = *v
	}
}
