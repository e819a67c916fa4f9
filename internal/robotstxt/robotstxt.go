// Package robotstxt wraps github.com/temoto/robotstxt to answer is_allowed
// and crawl-delay questions, and discovers sitemap references out of
// robots.txt — grounded on the teacher's services/robots.go fetch style
// (short timeout, stealth headers) but with real Allow/Disallow/Crawl-delay
// semantics instead of the teacher's sitemap-only line scrape.
package robotstxt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	fetchTimeout  = 10 * time.Second
	wildcardAgent = "*"
)

// Rules wraps a parsed robots.txt for one host.
type Rules struct {
	data *robotstxt.RobotsData
	host string
}

// Fetch retrieves and parses /robots.txt for the given base URL. A missing
// or unparsable robots.txt yields an empty Rules that allows everything —
// "no rules -> allowed", per SPEC_FULL.md §4.2.
func Fetch(ctx context.Context, client *http.Client, baseURL string) (*Rules, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return &Rules{}, fmt.Errorf("robotstxt: parse base url: %w", err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &Rules{}, err
	}
	setStealthHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		// Network failure: treat as "no robots.txt", allow everything.
		return &Rules{host: u.Host}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &Rules{host: u.Host}, nil
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return &Rules{host: u.Host}, nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return &Rules{host: u.Host}, nil
	}
	return &Rules{data: data, host: u.Host}, nil
}

// IsAllowed reports whether path may be crawled under the wildcard
// user-agent group. Longest match wins between Allow and Disallow; an
// Allow of equal length to a matching Disallow wins (temoto/robotstxt
// implements this precedence natively).
func (r *Rules) IsAllowed(path string) bool {
	if r == nil || r.data == nil {
		return true
	}
	group := r.data.FindGroup(wildcardAgent)
	if group == nil {
		return true
	}
	return group.Test(path)
}

// CrawlDelay returns the wildcard group's Crawl-delay directive, or zero if
// absent.
func (r *Rules) CrawlDelay() time.Duration {
	if r == nil || r.data == nil {
		return 0
	}
	group := r.data.FindGroup(wildcardAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// Sitemaps returns the Sitemap: directives found in robots.txt.
func (r *Rules) Sitemaps() []string {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data.Sitemaps
}

func setStealthHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CrawlCoreBot/1.0; +https://example.invalid/bot)")
	req.Header.Set("Accept", "text/plain,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")
}
