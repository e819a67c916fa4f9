// Package workerpool implements the bounded-concurrency lease/dispatch loop
// (M2), grounded on the teacher's services/workerpool.go shutdown-channel
// and WaitGroup shutdown pattern, with the hand-rolled chan-struct{}
// semaphore replaced by golang.org/x/sync/semaphore.Weighted per
// SPEC_FULL.md §4.10.
package workerpool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rs/zerolog/log"

	"github.com/transparent-search/crawlcore/internal/events"
	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
)

const (
	defaultConcurrency   = 3
	defaultPollInterval  = 5 * time.Second
	defaultShutdownGrace = 10 * time.Second
)

// Executor runs the per-Job pipeline. internal/crawler.Pipeline implements
// this.
type Executor interface {
	Process(ctx context.Context, job *model.Job) error
}

// JobIndexer runs the post-completion quality gate (M4) against one
// completed Job. *indexer.Indexer implements this.
type JobIndexer interface {
	IndexJob(ctx context.Context, jobID string) (indexer.Outcome, float64, error)
}

// IndexGate reports whether automatic indexing is currently permitted.
// *scheduler.Flags implements this via IndexingAllowed.
type IndexGate interface {
	IndexingAllowed() bool
}

// Pool leases pending Jobs from the Store and dispatches each to an
// Executor, never holding more than Concurrency Jobs in flight.
type Pool struct {
	store        store.Store
	executor     Executor
	bus          *events.Bus
	indexer      JobIndexer
	indexGate    IndexGate
	concurrency  int64
	pollInterval time.Duration
	grace        time.Duration

	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	cancel    chan struct{}
	forceStop chan struct{}
	once      sync.Once
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithConcurrency overrides the default bounded concurrency of 3.
func WithConcurrency(n int) Option {
	return func(p *Pool) { p.concurrency = int64(n) }
}

// WithPollInterval overrides the default 5s idle-poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) { p.pollInterval = d }
}

// WithShutdownGrace overrides the default 10s bounded shutdown grace.
func WithShutdownGrace(d time.Duration) Option {
	return func(p *Pool) { p.grace = d }
}

// WithEvents attaches an event bus the Pool publishes a best-effort
// "processing started" event to on every dispatch. bus may be nil, which
// disables publishing entirely.
func WithEvents(bus *events.Bus) Option {
	return func(p *Pool) { p.bus = bus }
}

// WithIndexer attaches the Indexer (M4) the Pool runs automatically against
// every Job that completes successfully. Without this option, Jobs are
// never indexed except by an explicit admin reindex call.
func WithIndexer(ix JobIndexer) Option {
	return func(p *Pool) { p.indexer = ix }
}

// WithIndexGate attaches the admin control flags consulted before each
// automatic index run, so force_pause_index halts M4 without affecting
// crawling.
func WithIndexGate(gate IndexGate) Option {
	return func(p *Pool) { p.indexGate = gate }
}

// New builds a Pool leasing from st and dispatching to exec.
func New(st store.Store, exec Executor, opts ...Option) *Pool {
	p := &Pool{
		store:        st,
		executor:     exec,
		concurrency:  defaultConcurrency,
		pollInterval: defaultPollInterval,
		grace:        defaultShutdownGrace,
		cancel:       make(chan struct{}),
		forceStop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sem = semaphore.NewWeighted(p.concurrency)
	return p
}

// Run starts the lease/dispatch loop and blocks until ctx is cancelled or
// Stop is called. An idle poll issues one ClaimNextPending query that finds
// nothing (never a busy loop).
func (p *Pool) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case <-p.cancel:
			p.drain()
			return
		case <-ticker.C:
			p.leaseAvailable(ctx)
		}
	}
}

// leaseAvailable leases up to the pool's free slots worth of pending Jobs
// and dispatches each on its own goroutine, tracked by the semaphore.
func (p *Pool) leaseAvailable(ctx context.Context) {
	for {
		select {
		case <-p.cancel:
			return
		default:
		}
		if !p.sem.TryAcquire(1) {
			return
		}

		job, err := p.store.ClaimNextPending(ctx)
		if err != nil {
			p.sem.Release(1)
			if err != store.ErrNotFound {
				log.Warn().Err(err).Msg("workerpool: claim failed")
			}
			return
		}

		p.wg.Add(1)
		go p.dispatch(ctx, job)
	}
}

func (p *Pool) dispatch(ctx context.Context, job *model.Job) {
	defer p.wg.Done()
	defer p.sem.Release(1)

	select {
	case <-p.forceStop:
		log.Info().Str("job_id", job.ID).Msg("workerpool: dropping job, force-stopped before fetch")
		return
	default:
	}

	p.publish(events.Event{
		Type:      events.TypeProgress,
		JobID:     job.ID,
		SessionID: job.SessionID,
		URL:       job.URL,
		Depth:     job.Depth,
		Message:   "processing started",
	})

	if err := p.executor.Process(ctx, job); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Str("url", job.URL).Msg("workerpool: job failed")
		return
	}

	p.indexCompleted(ctx, job)
}

// indexCompleted runs the Indexer (M4) against a Job that just completed
// successfully, per spec.md §2: "when a Job completes, Indexer (M4) runs L9
// against its result". A no-op when no Indexer is attached or force_pause_
// index is set.
func (p *Pool) indexCompleted(ctx context.Context, job *model.Job) {
	if p.indexer == nil {
		return
	}
	if p.indexGate != nil && !p.indexGate.IndexingAllowed() {
		return
	}
	outcome, score, err := p.indexer.IndexJob(ctx, job.ID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("workerpool: automatic indexing failed")
		return
	}
	log.Info().Str("job_id", job.ID).Str("outcome", string(outcome)).Float64("quality_score", score).
		Msg("workerpool: job indexed")
}

// publish fires ev through the attached event bus, a no-op when none is
// configured.
func (p *Pool) publish(ev events.Event) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ev)
}

// Stop requests cooperative shutdown: no new Jobs are leased, and in-flight
// Jobs are awaited for the pool's shutdown grace before ForceStop would be
// needed.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.cancel) })
}

// ForceStop stops leasing and signals in-flight dispatch goroutines to drop
// their Job as soon as they next check, then waits up to the grace period.
func (p *Pool) ForceStop() {
	p.Stop()
	close(p.forceStop)
	p.drain()
}

// drain awaits in-flight Jobs for the bounded grace window.
func (p *Pool) drain() {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.grace):
		log.Warn().Msg("workerpool: shutdown grace exceeded, in-flight jobs abandoned")
	}
}
