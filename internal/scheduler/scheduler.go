// Package scheduler runs the two autonomous timers (M3): site rediscovery
// every 6h and a queue-tick delegating to the Worker Pool every 30s,
// grounded on quaero's robfig/cron/v3 scheduler.go (cron.New, AddFunc,
// Start/Stop) instead of raw time.Ticker goroutines.
package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/sitemap"
	"github.com/transparent-search/crawlcore/internal/store"
)

const (
	discoverySchedule  = "0 0 */6 * * *"
	queueTickSchedule  = "*/30 * * * * *"
	sessionFreshWindow = 24 * time.Hour
	maxSitemapsPerSite = 3
	maxURLsPerSitemap  = 100
	staleJobAge        = 72 * time.Hour
)

// Site is one admin-configured crawl target. Sites are supplied by
// configuration (internal/config), not a database table — spec.md's data
// model names no Site entity, only Sessions/Jobs per domain.
type Site struct {
	Domain            string
	MaxDepth          int
	PageLimit         int
	EnableJSRendering bool
}

// Flags are the admin controls consulted at every tick boundary.
// SPEC_FULL.md §4.11: crawl_enabled, index_enabled, force_stop,
// force_pause_index, each a plain boolean; Resume clears all of them.
type Flags struct {
	mu              sync.Mutex
	CrawlEnabled    bool
	IndexEnabled    bool
	ForceStop       bool
	ForcePauseIndex bool
}

// NewFlags returns Flags with crawling and indexing enabled by default.
func NewFlags() *Flags {
	return &Flags{CrawlEnabled: true, IndexEnabled: true}
}

func (f *Flags) snapshot() Flags {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Flags{CrawlEnabled: f.CrawlEnabled, IndexEnabled: f.IndexEnabled, ForceStop: f.ForceStop, ForcePauseIndex: f.ForcePauseIndex}
}

// Snapshot returns a copy of the current control flags, safe for concurrent
// callers such as the HTTP admin-status handler.
func (f *Flags) Snapshot() Flags {
	return f.snapshot()
}

// IndexingAllowed reports whether the Worker Pool may run automatic
// indexing (M4) right now, consulted after every completed Job. Satisfies
// workerpool.IndexGate.
func (f *Flags) IndexingAllowed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.IndexEnabled && !f.ForcePauseIndex
}

// SetForcePauseIndex toggles the force-pause-index control, which halts M4
// without affecting crawling.
func (f *Flags) SetForcePauseIndex(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ForcePauseIndex = v
}

// Resume clears every admin control back to the running default.
func (f *Flags) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CrawlEnabled = true
	f.IndexEnabled = true
	f.ForceStop = false
	f.ForcePauseIndex = false
}

// SetForceStop toggles the force-stop control.
func (f *Flags) SetForceStop(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ForceStop = v
}

// QueueTicker is the subset of workerpool.Pool the Scheduler's queue-tick
// loop delegates to.
type QueueTicker interface {
	Run(ctx context.Context)
	Stop()
}

// Scheduler owns the two cron loops plus the admin flag bag.
type Scheduler struct {
	store  store.Store
	client *http.Client
	sites  []Site
	flags  *Flags
	ticker QueueTicker

	cron *cron.Cron
}

// New builds a Scheduler over sites, writing Sessions/Jobs to st and
// delegating queue ticks to ticker.
func New(st store.Store, sites []Site, ticker QueueTicker, flags *Flags) *Scheduler {
	return &Scheduler{
		store:  st,
		client: &http.Client{Timeout: 15 * time.Second},
		sites:  sites,
		flags:  flags,
		ticker: ticker,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers both loops and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(discoverySchedule, func() { s.runDiscovery(ctx) }); err != nil {
		return fmt.Errorf("scheduler: register discovery: %w", err)
	}
	if _, err := s.cron.AddFunc(queueTickSchedule, func() { s.runQueueTick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: register queue tick: %w", err)
	}
	s.cron.Start()
	log.Info().Int("sites", len(s.sites)).Msg("scheduler: started")
	return nil
}

// Stop halts both cron loops and the delegated worker pool.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.ticker.Stop()
}

func (s *Scheduler) runQueueTick(ctx context.Context) {
	flags := s.flags.snapshot()
	if !flags.CrawlEnabled || flags.ForceStop {
		return
	}
	s.ticker.Run(ctx)
}

// runDiscovery enumerates configured sites and seeds a Session + Jobs for
// any site without a session in the past 24h, per SPEC_FULL.md §4.11.
func (s *Scheduler) runDiscovery(ctx context.Context) {
	flags := s.flags.snapshot()
	if !flags.CrawlEnabled || flags.ForceStop {
		return
	}

	for _, site := range s.sites {
		if err := s.discoverSite(ctx, site); err != nil {
			log.Warn().Err(err).Str("domain", site.Domain).Msg("scheduler: discovery failed")
		}
	}

	if purged, err := s.store.PurgeStaleJobs(ctx, staleJobAge); err != nil {
		log.Warn().Err(err).Msg("scheduler: purge stale jobs failed")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Msg("scheduler: purged stale pending jobs")
	}
}

func (s *Scheduler) discoverSite(ctx context.Context, site Site) error {
	existing, err := s.store.FindSessionByDomain(ctx, site.Domain)
	if err == nil && existing != nil && time.Since(existing.CreatedAt) < sessionFreshWindow {
		return nil
	}
	if err != nil && err != store.ErrNotFound {
		return err
	}

	baseURL := fmt.Sprintf("https://%s/", site.Domain)
	session := &model.Session{
		Domain:    site.Domain,
		Status:    model.SessionRunning,
		MaxDepth:  site.MaxDepth,
		PageLimit: site.PageLimit,
		CreatedAt: time.Now(),
	}
	sessionID, err := s.store.CreateSession(ctx, session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	sitemapURLs := sitemap.Discover(ctx, s.client, baseURL, nil)
	if len(sitemapURLs) > maxSitemapsPerSite {
		sitemapURLs = sitemapURLs[:maxSitemapsPerSite]
	}

	seeded := 0
	for _, sm := range sitemapURLs {
		entries, err := sitemap.Parse(ctx, s.client, sm)
		if err != nil {
			log.Warn().Err(err).Str("sitemap", sm).Msg("scheduler: sitemap parse failed")
			continue
		}
		if len(entries) > maxURLsPerSitemap {
			entries = entries[:maxURLsPerSitemap]
		}
		for _, e := range entries {
			if _, err := s.seedJob(ctx, sessionID, site, e.Loc); err != nil {
				log.Warn().Err(err).Str("url", e.Loc).Msg("scheduler: seed job failed")
				continue
			}
			seeded++
		}
	}

	if seeded == 0 {
		if _, err := s.seedJob(ctx, sessionID, site, baseURL); err != nil {
			return fmt.Errorf("seed root job: %w", err)
		}
	}

	log.Info().Str("domain", site.Domain).Int("seeded", seeded).Msg("scheduler: discovery seeded session")
	return nil
}

func (s *Scheduler) seedJob(ctx context.Context, sessionID string, site Site, url string) (string, error) {
	return s.store.CreateJob(ctx, &model.Job{
		SessionID:         sessionID,
		Domain:            site.Domain,
		URL:               url,
		Status:            model.JobPending,
		Priority:          1,
		Depth:             0,
		MaxDepth:          site.MaxDepth,
		EnableJSRendering: site.EnableJSRendering,
		CreatedAt:         time.Now(),
	})
}
