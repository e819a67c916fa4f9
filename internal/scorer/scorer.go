// Package scorer computes the Page Value Score used to prioritize crawl
// order, grounded on original_source's app/utils/page_value_scorer.py
// (PageValueScorer) with its weights, piecewise factor functions, and
// priority thresholds carried over unchanged.
package scorer

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// weights sum to 1.0 per spec.md §4.5.
var weights = map[string]float64{
	"depth":               0.15,
	"internal_links":      0.15,
	"external_backlinks":  0.15,
	"content_quality":     0.20,
	"metadata":            0.15,
	"freshness":           0.10,
	"uniqueness":          0.10,
}

// LinkMetrics captures a page's position in the link graph.
type LinkMetrics struct {
	DepthFromRoot             int
	InternalLinkCount         int
	ExternalBacklinkEstimate  int
	OutgoingInternalLinks     int
	OutgoingExternalLinks     int
}

// ContentMetrics captures content structure and completeness signals.
type ContentMetrics struct {
	HasStructuredData   bool
	IsArticle           bool
	HasPublishDate      bool
	HasAuthor           bool
	HasOGTags           bool
	WordCount           int
	HeadingsCount       int
	HasMetaDescription  bool
}

// Score is the complete page value scoring result.
type Score struct {
	TotalScore      float64
	LinkScore       float64
	ContentScore    float64
	RelevanceScore  float64
	CrawlPriority   int
	Recommendation  string
	Factors         map[string]float64
	Reasoning       []string
}

// ScorePage computes a PageValueScore for pageURL given its link and content
// metrics. recentCrawl halves the freshness factor when true.
func ScorePage(pageURL string, link LinkMetrics, content ContentMetrics, recentCrawl bool) Score {
	factors := map[string]float64{}

	depthScore := depthScore(link.DepthFromRoot)
	factors["depth"] = depthScore

	linkPopularityScore := linkPopularityScore(link.InternalLinkCount)
	factors["internal_links"] = linkPopularityScore

	backlinkScore := backlinkScore(link.ExternalBacklinkEstimate)
	factors["external_backlinks"] = backlinkScore

	contentQualityScore := contentQualityScore(content)
	factors["content_quality"] = contentQualityScore

	metadataScore := metadataScore(content)
	factors["metadata"] = metadataScore

	freshnessScore := 50.0
	if recentCrawl {
		freshnessScore = 25.0
	}
	factors["freshness"] = freshnessScore

	uniquenessScore := uniquenessScore(pageURL, content)
	factors["uniqueness"] = uniquenessScore

	var total float64
	for key, weight := range weights {
		total += factors[key] * weight
	}

	priority, recommendation := priorityFor(total)
	reasoning := reasoning(factors, link, content, total)

	return Score{
		TotalScore:     total,
		LinkScore:      (depthScore + linkPopularityScore + backlinkScore) / 3,
		ContentScore:   contentQualityScore,
		RelevanceScore: metadataScore,
		CrawlPriority:  priority,
		Recommendation: recommendation,
		Factors:        factors,
		Reasoning:      reasoning,
	}
}

func depthScore(depth int) float64 {
	switch {
	case depth <= 1:
		return 100.0
	case depth == 2:
		return 85.0
	case depth == 3:
		return 70.0
	case depth == 4:
		return 55.0
	case depth == 5:
		return 40.0
	default:
		return math.Max(10.0, 40.0*math.Exp(-0.2*float64(depth-5)))
	}
}

func linkPopularityScore(internalLinks int) float64 {
	switch {
	case internalLinks == 0:
		return 20.0
	case internalLinks == 1:
		return 40.0
	case internalLinks <= 3:
		return 60.0
	case internalLinks <= 10:
		return 75.0
	case internalLinks <= 50:
		return 85.0
	default:
		return math.Min(100.0, 85.0+math.Log(float64(internalLinks))/math.Log(100))
	}
}

func backlinkScore(backlinks int) float64 {
	switch {
	case backlinks == 0:
		return 30.0
	case backlinks <= 5:
		return 50.0
	case backlinks <= 20:
		return 70.0
	case backlinks <= 100:
		return 85.0
	default:
		return math.Min(100.0, 85.0+math.Log(float64(backlinks))/math.Log(1000))
	}
}

func contentQualityScore(m ContentMetrics) float64 {
	score := 50.0
	if m.IsArticle {
		score += 15.0
	}

	var metadataPoints float64
	if m.HasStructuredData {
		metadataPoints += 5
	}
	if m.HasPublishDate {
		metadataPoints += 5
	}
	if m.HasAuthor {
		metadataPoints += 5
	}
	if m.HasOGTags {
		metadataPoints += 5
	}
	if m.HasMetaDescription {
		metadataPoints += 5
	}
	score += metadataPoints

	switch {
	case m.WordCount >= 500:
		score += 10.0
	case m.WordCount >= 300:
		score += 7.0
	case m.WordCount >= 100:
		score += 3.0
	}

	switch {
	case m.HeadingsCount >= 5:
		score += 5.0
	case m.HeadingsCount >= 3:
		score += 3.0
	}

	return math.Min(100.0, score)
}

func metadataScore(m ContentMetrics) float64 {
	const totalPossible = 5.0
	var score float64
	if m.HasMetaDescription {
		score++
	}
	if m.HasOGTags {
		score++
	}
	if m.HasStructuredData {
		score++
	}
	if m.HasPublishDate {
		score++
	}
	if m.HasAuthor {
		score++
	}
	return (score / totalPossible) * 100.0
}

func uniquenessScore(pageURL string, m ContentMetrics) float64 {
	score := 50.0
	if m.IsArticle {
		score = 80.0
	}

	path := ""
	if u, err := url.Parse(pageURL); err == nil {
		path = strings.ToLower(u.Path)
	}
	for _, p := range []string{"archive", "category", "tag", "author"} {
		if strings.Contains(path, p) {
			score -= 15.0
			break
		}
	}

	if strings.Count(pageURL, "?") > 1 {
		score -= 10.0
	}

	return math.Max(10.0, score)
}

func priorityFor(score float64) (int, string) {
	switch {
	case score >= 75:
		return 1, "CRAWL_NOW"
	case score >= 55:
		return 3, "CRAWL_SOON"
	case score >= 35:
		return 6, "CRAWL_LATER"
	default:
		return 10, "LOW_VALUE"
	}
}

func reasoning(factors map[string]float64, link LinkMetrics, content ContentMetrics, total float64) []string {
	var reasons []string

	if factors["depth"] >= 80 {
		reasons = append(reasons, "Located near domain root (high priority)")
	}
	if factors["internal_links"] >= 75 {
		reasons = append(reasons, fmt.Sprintf("Heavily linked internally (%d incoming links)", link.InternalLinkCount))
	}
	if factors["external_backlinks"] >= 75 {
		reasons = append(reasons, fmt.Sprintf("Significant external authority (%d est. backlinks)", link.ExternalBacklinkEstimate))
	}
	if factors["content_quality"] >= 80 {
		reasons = append(reasons, "High content quality and structure")
	}
	if content.IsArticle {
		reasons = append(reasons, "Identified as article/blog post (original content)")
	}

	if factors["depth"] <= 40 {
		reasons = append(reasons, fmt.Sprintf("Deep page (%d hops from root)", link.DepthFromRoot))
	}
	if factors["internal_links"] <= 40 {
		reasons = append(reasons, "Limited internal linking")
	}
	if factors["content_quality"] <= 50 {
		reasons = append(reasons, "Minimal content or metadata")
	}
	if !content.HasStructuredData {
		reasons = append(reasons, "No structured data markup")
	}

	if len(reasons) == 0 {
		return []string{fmt.Sprintf("Overall score: %.1f", total)}
	}
	return reasons
}
