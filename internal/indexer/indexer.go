// Package indexer implements the classify -> quality-gate -> accept/reject
// flow (M4), grounded on original_source's app/services/indexer.py
// ContentIndexer.index_crawl_job: a completed Job either becomes a
// SearchRecord (plus its Images and Favicon) or is annotated with a
// rejection reason, never both, and a completed Job is never turned back
// into a failed one by indexing outcome.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/kennygrant/sanitize"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/classify"
	"github.com/transparent-search/crawlcore/internal/crawlerr"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/quality"
	"github.com/transparent-search/crawlcore/internal/store"
)

// Outcome is the terminal annotation Indexer writes onto a Job.
type Outcome string

const (
	OutcomeIndexed  Outcome = "indexed"
	OutcomeRejected Outcome = "rejected"
	OutcomeSkipped  Outcome = "skipped"
)

// Indexer runs the quality gate and SearchRecord projection for completed
// Jobs.
type Indexer struct {
	store store.Store
}

// New builds an Indexer backed by st.
func New(st store.Store) *Indexer {
	return &Indexer{store: st}
}

// BulkResult summarizes a reindex sweep over a Session or domain.
type BulkResult struct {
	Total              int
	Indexed            int
	Rejected           int
	Skipped            int
	MeanQualityScore   float64
	MedianQualityScore float64
}

// IndexJob evaluates one completed Job and writes its terminal indexing
// outcome. Calling it again for an already-indexed Job re-evaluates and
// re-upserts unless skipExisting is honored by the caller (ReindexSession/
// ReindexDomain do so; a direct IndexJob call always re-evaluates).
func (ix *Indexer) IndexJob(ctx context.Context, jobID string) (Outcome, float64, error) {
	job, err := ix.store.GetJob(ctx, jobID)
	if err != nil {
		return "", 0, err
	}
	if job.Status != model.JobCompleted {
		return "", 0, crawlerr.Wrap(crawlerr.Policy, "indexer: job not completed", fmt.Errorf("job %s is %s", jobID, job.Status))
	}

	metadata, err := ix.store.GetMetadataByJob(ctx, jobID)
	if err != nil {
		return "", 0, fmt.Errorf("indexer: load metadata: %w", err)
	}
	analysis, err := ix.store.GetAnalysisByJob(ctx, jobID)
	if err != nil {
		return "", 0, fmt.Errorf("indexer: load analysis: %w", err)
	}

	contentType := classify.ByURL(job.URL)
	result := quality.Evaluate(quality.Input{
		ContentType: contentType,
		Metadata: quality.Metadata{
			Title:             metadata.Title,
			MetaDescription:   metadata.Description,
			OGTitle:           metadata.OpenGraph["title"],
			OGDescription:     metadata.OpenGraph["description"],
			OGImageURL:        metadata.OpenGraph["image"],
			H1:                metadata.H1,
			H2:                metadata.H2,
			HasStructuredData: metadata.HasStructuredData,
		},
		Content:        metadata.BodyMarkdown,
		URL:            job.URL,
		AnalysisScore:  &analysis.TotalScore,
		PageValueScore: &job.PageValueScore,
	})

	if !result.ShouldIndex {
		return OutcomeRejected, result.Score, ix.reject(ctx, job, contentType, result)
	}
	return OutcomeIndexed, result.Score, ix.accept(ctx, job, metadata, contentType, result)
}

func (ix *Indexer) accept(ctx context.Context, job *model.Job, metadata *model.PageMetadata, contentType string, result quality.Result) error {
	title := metadata.Title
	if title == "" {
		title = job.URL
	}

	record := &model.SearchRecord{
		URL:         job.URL,
		Domain:      job.Domain,
		Title:       sanitize.HTML(title),
		TitleSource: titleSource(metadata),
		Description: sanitize.HTML(metadata.Description),
		H2:          metadata.H2,
		Body:        metadata.BodyMarkdown,
		ContentType: contentType,
		QualityScore: result.Score,
		OpenGraph:   metadata.OpenGraph,
		FaviconURL:  metadata.FaviconURL,
		Images:      metadata.Images,
	}
	if len(metadata.H1) > 0 {
		record.H1 = metadata.H1[0]
	}

	if err := ix.store.UpsertSearchRecord(ctx, record); err != nil {
		return fmt.Errorf("indexer: upsert search record: %w", err)
	}
	if len(metadata.Images) > 0 {
		if err := ix.store.AppendImages(ctx, job.URL, metadata.Images); err != nil {
			log.Warn().Err(err).Str("url", job.URL).Msg("indexer: append images failed")
		}
	}
	if metadata.FaviconURL != "" {
		if err := ix.store.UpsertFavicon(ctx, &model.Favicon{Domain: job.Domain, URL: metadata.FaviconURL}); err != nil {
			log.Warn().Err(err).Str("domain", job.Domain).Msg("indexer: upsert favicon failed")
		}
	}

	now := time.Now()
	indexed := true
	return ix.store.UpdateJob(ctx, job.ID, store.JobUpdate{
		Indexed:      &indexed,
		IndexedAt:    &now,
		ContentType:  &contentType,
		QualityScore: &result.Score,
		TitleSource:  &record.TitleSource,
	})
}

func (ix *Indexer) reject(ctx context.Context, job *model.Job, contentType string, result quality.Result) error {
	rejected := true
	return ix.store.UpdateJob(ctx, job.ID, store.JobUpdate{
		Rejected:     &rejected,
		RejectReason: &result.RejectReason,
		ContentType:  &contentType,
		QualityScore: &result.Score,
	})
}

func titleSource(metadata *model.PageMetadata) string {
	if metadata.OpenGraph["title"] != "" {
		return "og:title"
	}
	if metadata.Title != "" {
		return "title"
	}
	if len(metadata.H1) > 0 {
		return "h1"
	}
	return "url"
}

// ReindexSession re-evaluates every completed Job in a Session. When
// skipExisting is true, Jobs whose URL already has a SearchRecord are left
// untouched (the reindex-without-disturbing-unaffected-pages contract
// SPEC_FULL.md §4.12 names).
func (ix *Indexer) ReindexSession(ctx context.Context, sessionID string, skipExisting bool) (*BulkResult, error) {
	jobs, err := ix.store.ListJobsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ix.reindex(ctx, jobs, skipExisting)
}

// ReindexDomain re-evaluates every completed Job across all Sessions for a
// domain.
func (ix *Indexer) ReindexDomain(ctx context.Context, domain string, skipExisting bool) (*BulkResult, error) {
	jobs, err := ix.store.ListJobsByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	return ix.reindex(ctx, jobs, skipExisting)
}

func (ix *Indexer) reindex(ctx context.Context, jobs []model.Job, skipExisting bool) (*BulkResult, error) {
	result := &BulkResult{}
	var scores []float64

	for i := range jobs {
		job := &jobs[i]
		if job.Status != model.JobCompleted {
			continue
		}
		result.Total++

		if skipExisting {
			if _, err := ix.store.GetSearchRecord(ctx, job.URL); err == nil {
				result.Skipped++
				continue
			} else if err != store.ErrNotFound {
				log.Warn().Err(err).Str("url", job.URL).Msg("indexer: search record lookup failed")
			}
		}

		outcome, score, err := ix.IndexJob(ctx, job.ID)
		if err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("indexer: reindex failed")
			continue
		}
		switch outcome {
		case OutcomeIndexed:
			result.Indexed++
			scores = append(scores, score)
		case OutcomeRejected:
			result.Rejected++
		}
	}

	if mean, err := stats.Mean(scores); err == nil {
		result.MeanQualityScore = mean
	}
	if median, err := stats.Median(scores); err == nil {
		result.MedianQualityScore = median
	}

	return result, nil
}
