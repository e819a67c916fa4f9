// Package crawler implements the per-Job pipeline (M1): fetch, extract,
// score, and enqueue children for exactly one leased Job, grounded on the
// teacher's crawler.go/content_processor.go fetch-then-process shape but
// re-pointed at the Job queue instead of colly's own recursive crawl.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/cache"
	"github.com/transparent-search/crawlcore/internal/classify"
	"github.com/transparent-search/crawlcore/internal/crawlerr"
	"github.com/transparent-search/crawlcore/internal/events"
	"github.com/transparent-search/crawlcore/internal/extract"
	"github.com/transparent-search/crawlcore/internal/intent"
	"github.com/transparent-search/crawlcore/internal/metadata"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/normalize"
	"github.com/transparent-search/crawlcore/internal/scorer"
	"github.com/transparent-search/crawlcore/internal/spam"
	"github.com/transparent-search/crawlcore/internal/store"
	"github.com/transparent-search/crawlcore/internal/trackers"
)

// maxChildrenPerPage caps anchor harvest fan-out per spec.md §4.9 step 5.
const maxChildrenPerPage = 20

// Pipeline runs the per-Job fetch/extract/score/enqueue sequence. One
// Pipeline is safe for concurrent use by multiple Worker Pool executors;
// each call to Process uses its own *http.Client internally (never shared
// across workers, per SPEC_FULL.md §5).
type Pipeline struct {
	store      store.Store
	cache      cache.Cache
	bus        *events.Bus
	politeness *politeness
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithEvents attaches an event bus the Pipeline publishes best-effort
// progress events to. bus may be nil, which disables publishing entirely.
func WithEvents(bus *events.Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// New builds a Pipeline backed by st for persistence and c for best-effort
// caching. c may be nil to disable caching entirely.
func New(st store.Store, c cache.Cache, opts ...Option) *Pipeline {
	client := newHTTPClient()
	p := &Pipeline{
		store:      st,
		cache:      c,
		politeness: newPoliteness(client),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// publish fires ev through the attached event bus, a no-op when none is
// configured — purely observational, never on the correctness path.
func (p *Pipeline) publish(ev events.Event) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ev)
}

// Process runs one Job end to end. The caller (Worker Pool) is responsible
// for having already leased the Job into the "processing" state via
// Store.ClaimNextPending; Process only ever writes a terminal transition.
func (p *Pipeline) Process(ctx context.Context, job *model.Job) error {
	rules := p.politeness.rulesFor(ctx, job.Domain, job.URL)
	if !rules.IsAllowed(pathOf(job.URL)) {
		return p.markFailed(ctx, job, crawlerr.Wrap(crawlerr.Policy, "robots disallow", fmt.Errorf("%s", job.URL)))
	}
	if err := p.politeness.wait(ctx, job.Domain); err != nil {
		return p.markFailed(ctx, job, crawlerr.Wrap(crawlerr.AdminCancellation, "politeness wait", err))
	}

	body, fetchErr := p.fetchBody(ctx, job)
	if fetchErr != nil {
		return p.markFailed(ctx, job, fetchErr)
	}

	pm, raw, extractErr := metadata.Build(ctx, newHTTPClient(), job.ID, job.URL, body)
	if extractErr != nil {
		// Fetch succeeded but extraction failed entirely: degraded metadata,
		// not a failed Job (SPEC_FULL.md §4.9).
		log.Warn().Err(extractErr).Str("url", job.URL).Msg("metadata extraction failed, completing degraded")
		return p.completeDegraded(ctx, job)
	}

	trackerReport, err := trackers.Detect(string(body))
	if err != nil {
		trackerReport = &trackers.Report{RiskProfile: "unknown"}
	}

	score := scorer.ScorePage(job.URL, scorer.LinkMetrics{
		DepthFromRoot:            job.Depth,
		InternalLinkCount:        len(raw.InternalLinks),
		ExternalBacklinkEstimate: len(raw.ExternalLinks),
		OutgoingInternalLinks:    len(raw.InternalLinks),
		OutgoingExternalLinks:    len(raw.ExternalLinks),
	}, scorer.ContentMetrics{
		HasStructuredData:  raw.HasStructuredData,
		IsArticle:          classify.ByURL(job.URL) == classify.Blog,
		HasPublishDate:     raw.PublishDate != nil,
		HasAuthor:          raw.Author != "",
		HasOGTags:          len(raw.OpenGraph) > 0,
		WordCount:          raw.WordCount,
		HeadingsCount:      len(raw.H1) + len(raw.H2) + len(raw.H3),
		HasMetaDescription: raw.Description != "",
	}, false)

	intentResult := intent.Analyze(raw.Title)

	domainPages, linkGraph := p.domainSpamInputs(ctx, job.Domain)
	domainPages = append(domainPages, spam.PageSummary{
		URL:           job.URL,
		Content:       raw.BodyMarkdown,
		WordCount:     raw.WordCount,
		LinkCount:     len(raw.InternalLinks) + len(raw.ExternalLinks),
		InternalLinks: len(raw.InternalLinks),
		ExternalLinks: len(raw.ExternalLinks),
	})
	linkGraph[job.URL] = append(append([]string{}, raw.InternalLinks...), raw.ExternalLinks...)

	spamReport := spam.Analyze(job.Domain, domainPages, linkGraph, "")

	analysis := &model.PageAnalysis{
		ID:             uuid.NewString(),
		JobID:          job.ID,
		URL:            job.URL,
		TotalScore:     score.TotalScore,
		CrawlPriority:  score.CrawlPriority,
		Recommendation: score.Recommendation,
		ScoreReasons:   score.Reasoning,
		SpamScore:      spamReport.SpamScore,
		SpamRiskLevel:  spamReport.RiskLevel,
		SpamSignals:    signalTypes(spamReport.Signals),
		IntentSummary:  intentResult.PrimaryIntent,
		CreatedAt:      time.Now(),
	}

	if err := p.store.InsertAnalysis(ctx, analysis); err != nil {
		return p.markFailed(ctx, job, err)
	}
	if err := p.store.InsertMetadata(ctx, pm); err != nil {
		return p.markFailed(ctx, job, err)
	}

	p.cacheWrite(ctx, job.Domain, job.URL, score.TotalScore, trackerReport)

	var children []string
	if job.Depth < job.MaxDepth {
		children = p.enqueueChildren(ctx, job, raw.InternalLinks)
	}

	return p.markCompleted(ctx, job, pm, raw, children)
}

// domainSpamInputs assembles the spam detector's domain-level state (spec.md
// §4.9 step 3: "derive spam report for the containing domain using
// accumulated page summaries") from every previously completed Job on the
// same domain, so a single page never gets analyzed in isolation.
func (p *Pipeline) domainSpamInputs(ctx context.Context, domain string) ([]spam.PageSummary, map[string][]string) {
	jobs, err := p.store.ListJobsByDomain(ctx, domain)
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("crawler: list jobs by domain failed for spam analysis")
		return nil, map[string][]string{}
	}

	pages := make([]spam.PageSummary, 0, len(jobs))
	linkGraph := make(map[string][]string, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if job.Status != model.JobCompleted {
			continue
		}
		pm, err := p.store.GetMetadataByJob(ctx, job.ID)
		if err != nil {
			continue
		}
		pages = append(pages, spam.PageSummary{
			URL:           job.URL,
			Content:       pm.BodyMarkdown,
			WordCount:     job.WordCount,
			LinkCount:     job.InternalLinksCount + job.ExternalLinksCount,
			InternalLinks: job.InternalLinksCount,
			ExternalLinks: job.ExternalLinksCount,
		})
		linkGraph[job.URL] = append(append([]string{}, pm.InternalLinks...), pm.ExternalLinks...)
	}
	return pages, linkGraph
}

func (p *Pipeline) fetchBody(ctx context.Context, job *model.Job) ([]byte, error) {
	if job.EnableJSRendering {
		if html, err := renderWithJS(job.URL); err == nil && strings.TrimSpace(html) != "" {
			return []byte(html), nil
		}
		log.Warn().Str("url", job.URL).Msg("js render hook failed, falling back to plain fetch")
	}

	result, err := fetchOne(ctx, job.URL)
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

func (p *Pipeline) enqueueChildren(ctx context.Context, job *model.Job, anchors []string) []string {
	children := make([]string, 0, maxChildrenPerPage)
	seen := make(map[string]bool, len(anchors))
	baseHost := ""
	if u, err := url.Parse(job.URL); err == nil {
		baseHost = u.Hostname()
	}
	for _, link := range anchors {
		if len(children) >= maxChildrenPerPage {
			break
		}
		if !normalize.Valid(link) {
			continue
		}
		linkURL, err := url.Parse(link)
		if err != nil || !normalize.SameRegisteredHost(baseHost, linkURL.Hostname()) {
			continue
		}
		normalized, err := normalize.Normalize(link)
		if err != nil {
			continue
		}
		if seen[normalized] {
			// policy skip: duplicate URL within the same page's anchors
			// (SPEC_FULL.md §7) — never counted as a failure.
			continue
		}
		seen[normalized] = true
		child := &model.Job{
			SessionID:         job.SessionID,
			Domain:            job.Domain,
			URL:               normalized,
			Status:            model.JobPending,
			Priority:          job.Priority,
			Depth:             job.Depth + 1,
			MaxDepth:          job.MaxDepth,
			EnableJSRendering: job.EnableJSRendering,
			CreatedAt:         time.Now(),
		}
		id, err := p.store.CreateJob(ctx, child)
		if err != nil {
			log.Warn().Err(err).Str("url", normalized).Msg("failed to enqueue child job")
			continue
		}
		children = append(children, id)
		p.publish(events.Event{
			Type:      events.TypeURLDiscovered,
			JobID:     job.ID,
			SessionID: job.SessionID,
			URL:       normalized,
			Depth:     child.Depth,
			Message:   "child job queued",
		})
	}
	return children
}

func (p *Pipeline) markFailed(ctx context.Context, job *model.Job, cause error) error {
	now := time.Now()
	status := model.JobFailed
	reason := cause.Error()
	err := p.store.UpdateJob(ctx, job.ID, store.JobUpdate{
		Status:        &status,
		CompletedAt:   &now,
		FailureReason: &reason,
	})
	if err != nil {
		return err
	}
	p.publish(events.Event{Type: events.TypeError, JobID: job.ID, SessionID: job.SessionID, URL: job.URL, Error: reason})
	return cause
}

func (p *Pipeline) completeDegraded(ctx context.Context, job *model.Job) error {
	now := time.Now()
	status := model.JobCompleted
	reason := "degraded metadata: extraction failed after a successful fetch"
	if err := p.store.UpdateJob(ctx, job.ID, store.JobUpdate{
		Status:        &status,
		CompletedAt:   &now,
		FailureReason: &reason,
	}); err != nil {
		return err
	}
	p.publish(events.Event{Type: events.TypeCompleted, JobID: job.ID, SessionID: job.SessionID, URL: job.URL, Message: reason})
	return nil
}

func (p *Pipeline) markCompleted(ctx context.Context, job *model.Job, pm *model.PageMetadata, raw *extract.Metadata, children []string) error {
	now := time.Now()
	status := model.JobCompleted
	wordCount := raw.WordCount
	headings := len(raw.H1) + len(raw.H2) + len(raw.H3)
	hasStructured := raw.HasStructuredData
	hasOG := len(pm.OpenGraph) > 0
	hasMetaDesc := pm.Description != ""
	internalCount := len(raw.InternalLinks)
	externalCount := len(raw.ExternalLinks)

	if err := p.store.UpdateJob(ctx, job.ID, store.JobUpdate{
		Status:             &status,
		CompletedAt:        &now,
		Children:           children,
		WordCount:          &wordCount,
		HeadingsCount:      &headings,
		HasStructuredData:  &hasStructured,
		HasOGTags:          &hasOG,
		HasMetaDescription: &hasMetaDesc,
		InternalLinksCount: &internalCount,
		ExternalLinksCount: &externalCount,
	}); err != nil {
		return err
	}
	p.publish(events.Event{Type: events.TypeCompleted, JobID: job.ID, SessionID: job.SessionID, URL: job.URL, Message: "job completed"})
	return nil
}

func (p *Pipeline) cacheWrite(ctx context.Context, domain, url string, score float64, trackerReport *trackers.Report) {
	if p.cache == nil {
		return
	}
	go func() {
		p.cache.Set(ctx, cacheKey("score", domain, url), cache.KindScore, score)
		p.cache.Set(ctx, cacheKey("trackers", domain, url), cache.KindMetadata, trackerReport)
	}()
}

func cacheKey(kind, domain, url string) string {
	return fmt.Sprintf("%s:%s:%s", kind, domain, url)
}

func signalTypes(signals []spam.Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Type)
	}
	return out
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
