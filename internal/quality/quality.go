// Package quality implements the content-type-specific quality gate,
// grounded on original_source's app/services/indexer.py
// (ContentTypeEvaluator, QualityScoreCalculator) with its MIN_SCORES,
// FACTOR_WEIGHTS, and factor formulas carried over unchanged.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/transparent-search/crawlcore/internal/classify"
)

const (
	minTitleLength = 5
	maxTitleLength = 200
)

var minScores = map[string]float64{
	classify.Blog:           0.50,
	classify.Video:          0.45,
	classify.Manga:          0.48,
	classify.Image:          0.40,
	classify.PDF:            0.52,
	classify.OfficialSite:   0.55,
	classify.CodeRepository: 0.60,
	classify.SocialMedia:    0.35,
}

var factorWeights = map[string]map[string]float64{
	classify.Blog: {
		"content_length": 0.25, "title_quality": 0.20, "metadata_quality": 0.20,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.Video: {
		"content_length": 0.15, "title_quality": 0.25, "metadata_quality": 0.25,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.Manga: {
		"content_length": 0.10, "title_quality": 0.25, "metadata_quality": 0.30,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.Image: {
		"content_length": 0.08, "title_quality": 0.20, "metadata_quality": 0.35,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.10,
	},
	classify.PDF: {
		"content_length": 0.25, "title_quality": 0.20, "metadata_quality": 0.20,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.OfficialSite: {
		"content_length": 0.20, "title_quality": 0.15, "metadata_quality": 0.25,
		"url_quality": 0.20, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.CodeRepository: {
		"content_length": 0.30, "title_quality": 0.15, "metadata_quality": 0.20,
		"url_quality": 0.15, "analysis_score": 0.12, "page_value_score": 0.08,
	},
	classify.SocialMedia: {
		"content_length": 0.20, "title_quality": 0.15, "metadata_quality": 0.15,
		"url_quality": 0.20, "analysis_score": 0.20, "page_value_score": 0.10,
	},
}

var typeContentRequirements = map[string]int{
	classify.Blog:           100,
	classify.Video:          30,
	classify.Manga:          50,
	classify.Image:          20,
	classify.PDF:            100,
	classify.OfficialSite:   80,
	classify.CodeRepository: 120,
	classify.SocialMedia:    10,
}

var spamPatterns = []string{
	"/download", "/redirect", "/click",
	"/ads", "/ad/", "/banner",
	"utm_", "tracking", "referrer=",
	"onclick", "onclick=",
}

var qualityDomains = []string{
	"github.com", "medium.com", "dev.to",
	"stackoverflow.com", "wikipedia.org",
	"arxiv.org", "nature.com", "science.org",
}

var altTextRegexp = regexp.MustCompile(`alt=["']([^"']*)["]`)

// Metadata is the subset of extracted metadata the quality gate consults.
type Metadata struct {
	Title           string
	MetaDescription string
	OGTitle         string
	OGDescription   string
	OGImageURL      string
	H1, H2          []string
	HasStructuredData bool
}

// Input bundles everything Evaluate needs for one page.
type Input struct {
	ContentType    string
	Metadata       Metadata
	Content        string
	URL            string
	AnalysisScore  *float64
	PageValueScore *float64
}

// Result is the quality gate's decision.
type Result struct {
	Score        float64
	Factors      map[string]float64
	ShouldIndex  bool
	RejectReason string
}

// Evaluate runs the full quality gate pipeline for in.
func Evaluate(in Input) Result {
	factors := map[string]float64{}
	var rejectReasons []string

	minContentLength := typeContentRequirements[in.ContentType]
	if minContentLength == 0 {
		minContentLength = 50
	}

	contentLength := len(strings.TrimSpace(in.Content))
	if contentLength < minContentLength {
		rejectReasons = append(rejectReasons, fmt.Sprintf("insufficient_content(%d/%d)", contentLength, minContentLength))
		factors["content_length"] = math.Max(0.1, float64(contentLength)/float64(minContentLength)*0.5)
	} else {
		optimalLength := minContentLength * 10
		if contentLength > optimalLength {
			factors["content_length"] = 1.0
		} else {
			factors["content_length"] = math.Min(1.0, float64(contentLength)/float64(optimalLength))
		}
	}

	title := in.Metadata.OGTitle
	if title == "" {
		title = in.Metadata.Title
	}
	titleLength := len(strings.TrimSpace(title))
	if titleLength < minTitleLength {
		rejectReasons = append(rejectReasons, "missing_title")
		factors["title_quality"] = 0.1
	} else if titleLength > maxTitleLength {
		factors["title_quality"] = 0.6
	} else {
		factors["title_quality"] = 0.95
	}

	factors["metadata_quality"] = metadataQuality(in)

	if in.AnalysisScore != nil {
		factors["analysis_score"] = math.Max(0, math.Min(1.0, *in.AnalysisScore/100))
	} else {
		factors["analysis_score"] = 0.5
	}

	if in.PageValueScore != nil {
		factors["page_value_score"] = math.Max(0, math.Min(1.0, *in.PageValueScore/100))
	} else {
		factors["page_value_score"] = 0.5
	}

	urlScore := 1.0
	urlLower := strings.ToLower(in.URL)
	for _, pattern := range spamPatterns {
		if strings.Contains(urlLower, pattern) {
			urlScore -= 0.15
			rejectReasons = append(rejectReasons, fmt.Sprintf("spam_pattern(%s)", pattern))
		}
	}
	for _, domain := range qualityDomains {
		if strings.Contains(urlLower, domain) {
			urlScore = math.Min(1.0, urlScore+0.15)
			break
		}
	}
	factors["url_quality"] = math.Max(0.2, urlScore)

	finalScore := evaluateForType(in.ContentType, factors)
	minScore := minScoreFor(in.ContentType)
	shouldIndex := finalScore >= minScore

	var rejectReason string
	if !shouldIndex {
		rejectReason = fmt.Sprintf("below_threshold(%.2f < %.2f)", finalScore, minScore)
		if len(rejectReasons) > 0 {
			limit := 3
			if len(rejectReasons) < limit {
				limit = len(rejectReasons)
			}
			rejectReason = strings.Join(rejectReasons[:limit], " + ")
		}
	}

	return Result{Score: finalScore, Factors: factors, ShouldIndex: shouldIndex, RejectReason: rejectReason}
}

func metadataQuality(in Input) float64 {
	score := 0.3
	m := in.Metadata

	if m.MetaDescription != "" {
		score += 0.15
	}
	if m.OGTitle != "" {
		score += 0.15
	}
	if m.OGDescription != "" {
		score += 0.10
	}
	if m.OGImageURL != "" {
		score += 0.10
	}

	switch in.ContentType {
	case classify.Blog:
		if len(m.H1) > 0 {
			score += 0.10
		}
		if len(m.H2) > 2 {
			score += 0.05
		}
	case classify.Video:
		if len(m.MetaDescription) > 50 {
			score += 0.15
		}
		lower := strings.ToLower(in.Content)
		if strings.Contains(lower, "video") || strings.Contains(lower, "transcript") {
			score += 0.05
		}
	case classify.Manga:
		if len(m.H1) > 0 {
			score += 0.10
		}
		if len(m.H2) > 0 {
			score += 0.10
		}
	case classify.Image:
		if len(altTextRegexp.FindAllString(in.Content, -1)) > 0 {
			score += 0.15
		}
	case classify.OfficialSite:
		if m.OGTitle != "" && m.OGDescription != "" {
			score += 0.15
		}
		lower := strings.ToLower(in.Content)
		if strings.Contains(lower, "json-ld") || strings.Contains(lower, "schema") {
			score += 0.10
		}
	case classify.CodeRepository:
		lower := strings.ToLower(in.Content)
		if strings.Contains(lower, "readme") || strings.Contains(lower, "documentation") {
			score += 0.20
		}
		urlLower := strings.ToLower(in.URL)
		if strings.Contains(urlLower, "github") || strings.Contains(urlLower, "gitlab") {
			score += 0.10
		}
	}

	return math.Min(1.0, score)
}

func evaluateForType(contentType string, factors map[string]float64) float64 {
	weights, ok := factorWeights[contentType]
	if !ok {
		weights = factorWeights[classify.Blog]
	}

	var score, totalWeight float64
	for name, weight := range weights {
		if v, ok := factors[name]; ok {
			score += v * weight
			totalWeight += weight
		}
	}

	if totalWeight > 0 {
		score = score / totalWeight
	} else {
		score = 0.5
	}
	return math.Round(score*100) / 100
}

func minScoreFor(contentType string) float64 {
	if v, ok := minScores[contentType]; ok {
		return v
	}
	return 0.50
}
