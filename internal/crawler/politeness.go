package crawler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/transparent-search/crawlcore/internal/robotstxt"
)

const defaultCrawlDelay = time.Second

// politeness holds per-domain robots rules and rate limiters, shared across
// Jobs of the same domain so robots.txt is fetched once and the crawl-delay
// token bucket is respected across every worker touching that domain.
type politeness struct {
	mu       sync.Mutex
	rules    map[string]*robotstxt.Rules
	limiters map[string]*rate.Limiter
	client   *http.Client
}

func newPoliteness(client *http.Client) *politeness {
	return &politeness{
		rules:    make(map[string]*robotstxt.Rules),
		limiters: make(map[string]*rate.Limiter),
		client:   client,
	}
}

// rulesFor returns the cached Rules for baseURL's host, fetching once.
func (p *politeness) rulesFor(ctx context.Context, domain, baseURL string) *robotstxt.Rules {
	p.mu.Lock()
	if r, ok := p.rules[domain]; ok {
		p.mu.Unlock()
		return r
	}
	p.mu.Unlock()

	r, err := robotstxt.Fetch(ctx, p.client, baseURL)
	if err != nil {
		r = &robotstxt.Rules{}
	}

	p.mu.Lock()
	p.rules[domain] = r
	delay := r.CrawlDelay()
	if delay <= 0 {
		delay = defaultCrawlDelay
	}
	if _, ok := p.limiters[domain]; !ok {
		p.limiters[domain] = rate.NewLimiter(rate.Every(delay), 1)
	}
	p.mu.Unlock()
	return r
}

// wait blocks until domain's token bucket allows the next fetch.
func (p *politeness) wait(ctx context.Context, domain string) error {
	p.mu.Lock()
	limiter, ok := p.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(defaultCrawlDelay), 1)
		p.limiters[domain] = limiter
	}
	p.mu.Unlock()
	return limiter.Wait(ctx)
}
