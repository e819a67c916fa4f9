package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeCleanDomain(t *testing.T) {
	pages := []PageSummary{
		{URL: "https://example.com/a", Content: "unique content about gardening", WordCount: 500, LinkCount: 5, InternalLinks: 10, ExternalLinks: 2},
		{URL: "https://example.com/b", Content: "unique content about cooking", WordCount: 600, LinkCount: 8, InternalLinks: 12, ExternalLinks: 1},
	}
	report := Analyze("example.com", pages, map[string][]string{
		"https://example.com/a": {"https://example.com/b"},
	}, "")
	assert.Equal(t, "clean", report.RiskLevel)
	assert.False(t, report.IsLinkFarm)
}

func TestAnalyzeDetectsContentDuplication(t *testing.T) {
	pages := []PageSummary{
		{URL: "https://example.com/a", Content: "duplicate text here", WordCount: 100},
		{URL: "https://example.com/b", Content: "duplicate text here", WordCount: 100},
		{URL: "https://example.com/c", Content: "different unique text entirely", WordCount: 100},
	}
	report := Analyze("example.com", pages, map[string][]string{}, "")
	assert.True(t, report.HasDuplicatedContent)
}

func TestAnalyzeDetectsLinkFarm(t *testing.T) {
	linkGraph := map[string][]string{}
	links := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		links = append(links, "https://example.com/x")
	}
	linkGraph["https://example.com/a"] = links

	pages := []PageSummary{{URL: "https://example.com/a", ExternalLinks: 20, InternalLinks: 5}}
	report := Analyze("example.com", pages, linkGraph, "")
	assert.True(t, report.IsLinkFarm)
}

func TestAnalyzeIPReputationHighOctet(t *testing.T) {
	signal, risk := analyzeIPReputation("203.0.113.250")
	assert.NotNil(t, signal)
	assert.Greater(t, risk, 0.0)
}

func TestAnalyzeIPReputationNoSignalForNormalIP(t *testing.T) {
	signal, risk := analyzeIPReputation("203.0.113.5")
	assert.Nil(t, signal)
	assert.Equal(t, 0.0, risk)
}
