// Package model defines the persistent entities of the crawl pipeline,
// mirrored 1:1 with the store collections documented in SPEC_FULL.md §3/§6.
package model

import "time"

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session groups the Jobs belonging to one crawl intent over one domain.
type Session struct {
	ID            string        `bson:"_id" json:"id"`
	Domain        string        `bson:"domain" json:"domain"`
	Status        SessionStatus `bson:"status" json:"status"`
	TotalPages    int           `bson:"total_pages" json:"total_pages"`
	CrawledPages  int           `bson:"crawled_pages" json:"crawled_pages"`
	FailedPages   int           `bson:"failed_pages" json:"failed_pages"`
	MaxDepth      int           `bson:"max_depth" json:"max_depth"`
	PageLimit     int           `bson:"page_limit" json:"page_limit"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	StartedAt     *time.Time    `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt   *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	SessionConfig map[string]any `bson:"session_metadata,omitempty" json:"session_metadata,omitempty"`
}

// JobStatus is the lifecycle state of a Job. Transitions are restricted to
// pending -> processing -> {completed, failed, cancelled}.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Job is a unit of work to fetch and analyze exactly one URL.
type Job struct {
	ID        string    `bson:"_id" json:"id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Domain    string    `bson:"domain" json:"domain"`
	URL       string    `bson:"url" json:"url"`
	Status    JobStatus `bson:"status" json:"status"`
	Priority  int       `bson:"priority" json:"priority"`
	Depth     int       `bson:"depth" json:"depth"`
	MaxDepth  int       `bson:"max_depth" json:"max_depth"`

	EnableJSRendering bool `bson:"enable_js_rendering" json:"enable_js_rendering"`

	PageValueScore float64 `bson:"page_value_score" json:"page_value_score"`

	// Supplemental fields carried from original_source's CrawlJob ORM model;
	// populated alongside PageAnalysis/PageMetadata at no extra crawl cost.
	WordCount           int  `bson:"word_count" json:"word_count"`
	HeadingsCount       int  `bson:"headings_count" json:"headings_count"`
	HasStructuredData   bool `bson:"has_structured_data" json:"has_structured_data"`
	HasOGTags           bool `bson:"has_og_tags" json:"has_og_tags"`
	HasMetaDescription  bool `bson:"has_meta_description" json:"has_meta_description"`
	InternalLinksCount  int  `bson:"internal_links_count" json:"internal_links_count"`
	ExternalLinksCount  int  `bson:"external_links_count" json:"external_links_count"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	Children []string `bson:"children,omitempty" json:"children,omitempty"`

	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	// Indexer annotation, set after M4 runs against a completed Job. Never
	// turns a completed Job into a failed one.
	Indexed       bool    `bson:"indexed,omitempty" json:"indexed,omitempty"`
	IndexedAt     *time.Time `bson:"indexed_at,omitempty" json:"indexed_at,omitempty"`
	Rejected      bool    `bson:"rejected,omitempty" json:"rejected,omitempty"`
	RejectReason  string  `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	ContentType   string  `bson:"content_type,omitempty" json:"content_type,omitempty"`
	QualityScore  float64 `bson:"quality_score,omitempty" json:"quality_score,omitempty"`
	TitleSource   string  `bson:"title_source,omitempty" json:"title_source,omitempty"`
}

// PageAnalysis stores scorer/spam/intent output for a fetched URL.
// Immutable after insert.
type PageAnalysis struct {
	ID            string    `bson:"_id" json:"id"`
	JobID         string    `bson:"job_id" json:"job_id"`
	URL           string    `bson:"url" json:"url"`
	TotalScore    float64   `bson:"total_score" json:"total_score"`
	CrawlPriority int       `bson:"crawl_priority" json:"crawl_priority"`
	Recommendation string   `bson:"recommendation" json:"recommendation"`
	ScoreReasons  []string  `bson:"score_reasons" json:"score_reasons"`
	SpamScore     float64   `bson:"spam_score" json:"spam_score"`
	SpamRiskLevel string    `bson:"spam_risk_level" json:"spam_risk_level"`
	SpamSignals   []string  `bson:"spam_signals" json:"spam_signals"`
	IntentSummary string    `bson:"intent_summary,omitempty" json:"intent_summary,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// PageMetadata stores facts extracted from the HTML. Immutable after insert.
type PageMetadata struct {
	ID          string `bson:"_id" json:"id"`
	JobID       string `bson:"job_id" json:"job_id"`
	URL         string `bson:"url" json:"url"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	CanonicalURL string `bson:"canonical_url,omitempty" json:"canonical_url,omitempty"`
	Language    string `bson:"language,omitempty" json:"language,omitempty"`
	Author      string `bson:"author,omitempty" json:"author,omitempty"`
	Keywords    []string `bson:"keywords,omitempty" json:"keywords,omitempty"`

	OpenGraph  map[string]string `bson:"open_graph,omitempty" json:"open_graph,omitempty"`
	TwitterCard map[string]string `bson:"twitter_card,omitempty" json:"twitter_card,omitempty"`

	RobotsIndex   bool `bson:"robots_index" json:"robots_index"`
	RobotsFollow  bool `bson:"robots_follow" json:"robots_follow"`
	RobotsArchive bool `bson:"robots_archive" json:"robots_archive"`
	RobotsSnippet bool `bson:"robots_snippet" json:"robots_snippet"`

	PublishDate  *time.Time `bson:"publish_date,omitempty" json:"publish_date,omitempty"`
	ModifiedDate *time.Time `bson:"modified_date,omitempty" json:"modified_date,omitempty"`

	H1 []string `bson:"h1,omitempty" json:"h1,omitempty"`
	H2 []string `bson:"h2,omitempty" json:"h2,omitempty"`
	H3 []string `bson:"h3,omitempty" json:"h3,omitempty"`

	HasStructuredData bool     `bson:"has_structured_data" json:"has_structured_data"`
	StructuredData    []string `bson:"structured_data,omitempty" json:"structured_data,omitempty"`

	InternalLinks []string `bson:"internal_links,omitempty" json:"internal_links,omitempty"`
	ExternalLinks []string `bson:"external_links,omitempty" json:"external_links,omitempty"`

	Images []ImageRef `bson:"images,omitempty" json:"images,omitempty"`

	BodyMarkdown string `bson:"body_markdown,omitempty" json:"body_markdown,omitempty"`
	RawHTML      string `bson:"raw_html,omitempty" json:"raw_html,omitempty"`

	FaviconURL string `bson:"favicon_url,omitempty" json:"favicon_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ImageRef is an image discovered during extraction, position-indexed.
type ImageRef struct {
	URL         string `bson:"url" json:"url"`
	Alt         string `bson:"alt,omitempty" json:"alt,omitempty"`
	Title       string `bson:"title,omitempty" json:"title,omitempty"`
	Width       int    `bson:"width,omitempty" json:"width,omitempty"`
	Height      int    `bson:"height,omitempty" json:"height,omitempty"`
	Responsive  bool   `bson:"responsive" json:"responsive"`
	Position    int    `bson:"position" json:"position"`
}

// SearchRecord is the indexable artifact surfaced to external search.
type SearchRecord struct {
	URL         string     `bson:"_id" json:"url"`
	Domain      string     `bson:"domain" json:"domain"`
	Title       string     `bson:"title" json:"title"`
	TitleSource string     `bson:"title_source" json:"title_source"`
	Description string     `bson:"description" json:"description"`
	H1          string     `bson:"h1,omitempty" json:"h1,omitempty"`
	H2          []string   `bson:"h2,omitempty" json:"h2,omitempty"`
	Body        string     `bson:"body" json:"body"`
	ContentType string     `bson:"content_type" json:"content_type"`
	QualityScore float64   `bson:"quality_score" json:"quality_score"`
	OpenGraph   map[string]string `bson:"open_graph,omitempty" json:"open_graph,omitempty"`
	FaviconURL  string     `bson:"favicon_url,omitempty" json:"favicon_url,omitempty"`
	Images      []ImageRef `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Favicon is owned by domain, shared across SearchRecords.
type Favicon struct {
	Domain    string    `bson:"_id" json:"domain"`
	URL       string    `bson:"url" json:"url"`
	Format    string    `bson:"format" json:"format"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
