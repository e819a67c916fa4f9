// Package trackers scans HTML for known tracking vendor signatures and
// aggregates a page risk score, grounded on original_source's
// app/utils/tracker_detector.py (KNOWN_TRACKERS table, inline ga()/gtag()/
// fbq() pattern checks, and the risk aggregation formula).
package trackers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Hit is one detected tracker occurrence.
type Hit struct {
	Domain   string
	Name     string
	Category string
	Risk     int
	Method   string
}

// Report is the aggregated output for one page.
type Report struct {
	Trackers    []Hit
	Count       int
	RiskScore   float64
	RiskProfile string
}

type trackerInfo struct {
	name, category string
	risk           int
}

// knownTrackers mirrors the Python KNOWN_TRACKERS table verbatim.
var knownTrackers = map[string]trackerInfo{
	"google-analytics.com":  {"Google Analytics", "analytics", 2},
	"googletagmanager.com":  {"Google Tag Manager", "analytics", 2},
	"segment.com":           {"Segment", "analytics", 3},
	"amplitude.com":         {"Amplitude", "analytics", 2},
	"mixpanel.com":          {"Mixpanel", "analytics", 3},
	"doubleclick.net":       {"Google Ads", "advertising", 4},
	"facebook.com":          {"Facebook Pixel", "advertising", 4},
	"criteo.com":            {"Criteo", "advertising", 4},
	"amazon-adsystem.com":   {"Amazon Ads", "advertising", 3},
	"hotjar.com":            {"Hotjar", "heatmap", 5},
	"fullstory.com":         {"FullStory", "heatmap", 5},
	"mouseflow.com":         {"Mouseflow", "heatmap", 5},
	"sessioncam.com":        {"SessionCam", "heatmap", 5},
	"facebook.net":          {"Facebook", "social", 4},
	"twitter.com":           {"Twitter", "social", 3},
	"linkedin.com":          {"LinkedIn", "social", 3},
}

// Detect scans rawHTML for script/pixel/iframe/inline-script tracker
// signatures and returns the aggregated Report.
func Detect(rawHTML string) (*Report, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	var riskSum, riskCount int

	record := func(info trackerInfo, domain, method string) {
		hits = append(hits, Hit{Domain: domain, Name: info.name, Category: info.category, Risk: info.risk, Method: method})
		riskSum += info.risk
		riskCount++
	}

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if info, domain, ok := checkTrackerURL(src); ok {
			record(info, domain, "script_src")
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		lower := strings.ToLower(src)
		if !strings.Contains(lower, "pixel") && !strings.Contains(lower, "beacon") {
			return
		}
		if info, domain, ok := checkTrackerURL(src); ok {
			record(info, domain, "img_pixel")
		}
	})

	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if info, domain, ok := checkTrackerURL(src); ok {
			record(info, domain, "iframe")
		}
	})

	doc.Find("script").Not("[src]").Each(func(_ int, s *goquery.Selection) {
		content := s.Text()
		if strings.Contains(content, "ga(") || strings.Contains(content, "gtag(") {
			record(trackerInfo{"Google Analytics", "analytics", 2}, "google-analytics.com", "script_inline")
		}
		if strings.Contains(content, "fbq(") {
			record(trackerInfo{"Facebook Pixel", "advertising", 4}, "facebook.com", "script_inline")
		}
	})

	riskScore := 1.0
	if riskCount > 0 {
		avgRisk := float64(riskSum) / float64(riskCount)
		penalty := float64(riskCount) * 0.05
		if penalty > 0.2 {
			penalty = 0.2
		}
		riskScore = 1.0 - (avgRisk / 5.0) - penalty
		if riskScore < 0.1 {
			riskScore = 0.1
		}
	}

	return &Report{
		Trackers:    dedupeByDomain(hits),
		Count:       len(dedupeByDomain(hits)),
		RiskScore:   riskScore,
		RiskProfile: riskProfile(riskScore),
	}, nil
}

func dedupeByDomain(hits []Hit) []Hit {
	seen := map[string]bool{}
	var out []Hit
	for _, h := range hits {
		if seen[h.Domain] {
			continue
		}
		seen[h.Domain] = true
		out = append(out, h)
	}
	return out
}

func checkTrackerURL(rawURL string) (trackerInfo, string, bool) {
	if rawURL == "" {
		return trackerInfo{}, "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return trackerInfo{}, "", false
	}
	domain := strings.ToLower(u.Hostname())
	if domain == "" {
		return trackerInfo{}, "", false
	}
	if info, ok := knownTrackers[domain]; ok {
		return info, domain, true
	}
	for trackerDomain, info := range knownTrackers {
		if domain == trackerDomain || strings.HasSuffix(domain, "."+trackerDomain) {
			return info, trackerDomain, true
		}
	}
	return trackerInfo{}, "", false
}

func riskProfile(score float64) string {
	switch {
	case score >= 0.9:
		return "clean"
	case score >= 0.7:
		return "minimal"
	case score >= 0.5:
		return "moderate"
	case score >= 0.3:
		return "heavy"
	default:
		return "severe"
	}
}
