package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/transparent-search/crawlcore/internal/crawlerr"
)

const (
	fetchTimeout  = 30 * time.Second
	userAgent     = "Mozilla/5.0 (compatible; CrawlCoreBot/1.0; +https://example.invalid/bot)"
)

type fetchResult struct {
	Body       []byte
	StatusCode int
	FinalURL   string
}

// fetchOne visits exactly targetURL with one colly.Collector configured to
// MaxDepth(1) so it never recurses on its own — child discovery is owned by
// the Job queue (SPEC_FULL.md §4.9), not by colly's built-in link following.
func fetchOne(ctx context.Context, targetURL string) (*fetchResult, error) {
	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(fetchTimeout)

	var result fetchResult
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		if err := ctx.Err(); err != nil {
			r.Abort()
			fetchErr = crawlerr.Wrap(crawlerr.AdminCancellation, "fetch aborted", err)
			return
		}
		setStealthHeaders(r)
	})

	c.OnResponse(func(r *colly.Response) {
		result.Body = append([]byte(nil), r.Body...)
		result.StatusCode = r.StatusCode
		result.FinalURL = r.Request.URL.String()
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = classifyFetchError(result.StatusCode, err)
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, classifyFetchError(0, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return nil, crawlerr.Wrap(crawlerr.PermanentFetch, fmt.Sprintf("status %d", result.StatusCode), fmt.Errorf("non-2xx response"))
	}
	return &result, nil
}

func classifyFetchError(status int, err error) error {
	if status >= 400 && status < 500 {
		return crawlerr.Wrap(crawlerr.PermanentFetch, fmt.Sprintf("status %d", status), err)
	}
	return crawlerr.Wrap(crawlerr.TransientIO, "fetch", err)
}

func setStealthHeaders(r *colly.Request) {
	r.Headers.Set("User-Agent", userAgent)
	r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Headers.Set("Accept-Encoding", "identity")
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}
