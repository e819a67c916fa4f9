// Package store defines the persistence contract (L11) spec.md §6 lists,
// grounded on the teacher's services/database.go Mongo wiring
// (mongo.Connect/options.Client().ApplyURI, bson.M filters, per-collection
// helper functions) generalized into an interface with a mongo-backed
// implementation in mongo.go.
package store

import (
	"context"
	"time"

	"github.com/transparent-search/crawlcore/internal/model"
)

// JobUpdate carries the subset of Job fields a caller wants to change.
// Nil pointers mean "leave unchanged".
type JobUpdate struct {
	Status              *model.JobStatus
	StartedAt           *time.Time
	CompletedAt         *time.Time
	FailureReason       *string
	Children            []string
	PageValueScore      *float64
	WordCount           *int
	HeadingsCount       *int
	HasStructuredData   *bool
	HasOGTags           *bool
	HasMetaDescription  *bool
	InternalLinksCount  *int
	ExternalLinksCount  *int
	Indexed             *bool
	IndexedAt           *time.Time
	Rejected            *bool
	RejectReason        *string
	ContentType         *string
	QualityScore        *float64
	TitleSource         *string
}

// Store is the persistence facade the crawl pipeline depends on. Every
// mutation the interface exposes is composable within one transaction per
// Job outcome (spec.md §6).
type Store interface {
	CreateSession(ctx context.Context, session *model.Session) (string, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	FindSessionByDomain(ctx context.Context, domain string) (*model.Session, error)
	UpdateSessionCounters(ctx context.Context, id string, crawledDelta, failedDelta int) error
	CompleteSession(ctx context.Context, id string) error

	CreateJob(ctx context.Context, job *model.Job) (string, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ClaimNextPending(ctx context.Context) (*model.Job, error)
	UpdateJob(ctx context.Context, id string, update JobUpdate) error
	ListJobsBySession(ctx context.Context, sessionID string) ([]model.Job, error)
	ListJobsByDomain(ctx context.Context, domain string) ([]model.Job, error)
	PurgeStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	InsertAnalysis(ctx context.Context, analysis *model.PageAnalysis) error
	InsertMetadata(ctx context.Context, metadata *model.PageMetadata) error
	GetAnalysisByJob(ctx context.Context, jobID string) (*model.PageAnalysis, error)
	GetMetadataByJob(ctx context.Context, jobID string) (*model.PageMetadata, error)

	UpsertSearchRecord(ctx context.Context, record *model.SearchRecord) error
	GetSearchRecord(ctx context.Context, url string) (*model.SearchRecord, error)
	AppendImages(ctx context.Context, url string, images []model.ImageRef) error
	UpsertFavicon(ctx context.Context, favicon *model.Favicon) error

	Close(ctx context.Context) error
}
