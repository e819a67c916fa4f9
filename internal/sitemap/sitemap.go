// Package sitemap discovers and parses XML sitemaps, grounded on the
// teacher's services/sitemap.go (common-path probing, gzip transport,
// sitemapindex-then-urlset XML parsing) with the recursion/URL caps and
// regex fallback SPEC_FULL.md §4.2 requires.
package sitemap

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout = 15 * time.Second
	maxDepth     = 10
	maxURLs      = 5000
)

var commonPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemaps.xml",
	"/sitemap/sitemap.xml",
}

// Entry is one discovered page from a sitemap.
type Entry struct {
	Loc        string
	LastMod    string
	ChangeFreq string
	Priority   float64
}

type urlset struct {
	XMLName xml.Name    `xml:"urlset"`
	URLs    []entryXML  `xml:"url"`
}

type entryXML struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

var locRegexp = regexp.MustCompile(`<loc>\s*([^<\s]+)\s*</loc>`)

// Discover probes robotsSitemaps (if any) plus a fixed list of common
// sitemap paths under baseURL, merging everything found into one set.
func Discover(ctx context.Context, client *http.Client, baseURL string, robotsSitemaps []string) []string {
	seen := make(map[string]bool)
	var found []string

	add := func(candidate string) {
		if !seen[candidate] {
			seen[candidate] = true
			found = append(found, candidate)
		}
	}

	for _, s := range robotsSitemaps {
		if exists(ctx, client, s) {
			add(s)
		}
	}

	u, err := url.Parse(baseURL)
	if err == nil {
		for _, p := range commonPaths {
			candidate := fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, p)
			if exists(ctx, client, candidate) {
				add(candidate)
			}
		}
	}

	return found
}

func exists(ctx context.Context, client *http.Client, sitemapURL string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, sitemapURL, nil)
	if err != nil {
		return false
	}
	setStealthHeaders(req)
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Parse fetches sitemapURL and returns its page entries, recursing into
// sitemapindex references up to maxDepth and maxURLs total. On XML parse
// failure it falls back to a regex scrape of <loc> tags.
func Parse(ctx context.Context, client *http.Client, sitemapURL string) ([]Entry, error) {
	return parseAt(ctx, client, sitemapURL, 0, newBudget())
}

type budget struct{ remaining int }

func newBudget() *budget { return &budget{remaining: maxURLs} }

func parseAt(ctx context.Context, client *http.Client, sitemapURL string, depth int, b *budget) ([]Entry, error) {
	if depth > maxDepth {
		return nil, nil
	}
	if b.remaining <= 0 {
		return nil, nil
	}

	body, err := fetchBody(ctx, client, sitemapURL)
	if err != nil {
		return nil, err
	}

	var idx sitemapIndex
	if err := xml.Unmarshal(body, &idx); err == nil && len(idx.Sitemaps) > 0 {
		var entries []Entry
		for _, ref := range idx.Sitemaps {
			if b.remaining <= 0 {
				break
			}
			sub, err := parseAt(ctx, client, ref.Loc, depth+1, b)
			if err != nil {
				continue // localized parse error: skip this branch
			}
			entries = append(entries, sub...)
		}
		return entries, nil
	}

	var set urlset
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		return capEntries(fromXML(set.URLs), b), nil
	}

	// Fallback: regex extraction of <loc> on XML-parse failure.
	matches := locRegexp.FindAllSubmatch(body, -1)
	var entries []Entry
	for _, m := range matches {
		entries = append(entries, Entry{Loc: string(m[1])})
	}
	return capEntries(entries, b), nil
}

func capEntries(entries []Entry, b *budget) []Entry {
	if len(entries) > b.remaining {
		entries = entries[:b.remaining]
	}
	b.remaining -= len(entries)
	return entries
}

func fromXML(in []entryXML) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		if e.Loc == "" {
			continue
		}
		out = append(out, Entry{Loc: e.Loc, LastMod: e.LastMod, ChangeFreq: e.ChangeFreq, Priority: e.Priority})
	}
	return out
}

func fetchBody(ctx context.Context, client *http.Client, sitemapURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	setStealthHeaders(req)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sitemap: fetch %s: %w", sitemapURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap: %s returned %d", sitemapURL, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("sitemap: gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(reader)
}

func setStealthHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CrawlCoreBot/1.0; +https://example.invalid/bot)")
	req.Header.Set("Accept", "application/xml,text/xml,*/*;q=0.8")
}
