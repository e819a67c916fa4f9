package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const faviconProbeTimeout = 6 * time.Second

// faviconFormatPriority ranks formats when more than one candidate is found:
// png > svg > ico > jpg.
var faviconFormatPriority = map[string]int{"png": 4, "svg": 3, "ico": 2, "jpg": 1, "jpeg": 1}

var probePaths = []string{"/favicon.ico", "/favicon.png", "/favicon.svg", "/apple-touch-icon.png"}

// Favicon returns the best favicon URL and its format for pageURL's
// document. It prefers a <link rel> declaration in <head>, falling back to
// probing a fixed list of well-known paths.
func Favicon(ctx context.Context, client *http.Client, doc *goquery.Document, base *url.URL) (string, string) {
	type candidate struct {
		url, format string
	}
	var candidates []candidate

	doc.Find("head link").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		rel = strings.ToLower(rel)
		if !strings.Contains(rel, "icon") && !strings.Contains(rel, "shortcut") && !strings.Contains(rel, "apple-touch") {
			return
		}
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := resolve(base, href)
		if resolved == "" {
			return
		}
		candidates = append(candidates, candidate{url: resolved, format: formatOf(resolved)})
	})

	if len(candidates) > 0 {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if faviconFormatPriority[c.format] > faviconFormatPriority[best.format] {
				best = c
			}
		}
		return best.url, best.format
	}

	if base == nil {
		return "", ""
	}
	for _, p := range probePaths {
		candidateURL := fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, p)
		if probe(ctx, client, candidateURL) {
			return candidateURL, formatOf(candidateURL)
		}
	}
	return "", ""
}

func formatOf(u string) string {
	lower := strings.ToLower(u)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "png"
	case strings.HasSuffix(lower, ".svg"):
		return "svg"
	case strings.HasSuffix(lower, ".ico"):
		return "ico"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "jpg"
	default:
		return ""
	}
}

func probe(ctx context.Context, client *http.Client, candidateURL string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, faviconProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, candidateURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
