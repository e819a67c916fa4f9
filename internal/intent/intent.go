// Package intent classifies the search intent a page's title suggests,
// grounded on original_source's app/utils/query_intent_analyzer.py
// (QueryIntentAnalyzer.analyze_query), which the crawler pipeline calls
// against the extracted title in place of a real search query.
package intent

import "strings"

const (
	Informational = "informational"
	Navigational  = "navigational"
	Transactional = "transactional"
	Commercial    = "commercial"
	Local         = "local"
)

var informationalKeywords = []string{
	"how", "what", "why", "when", "where",
	"explain", "describe", "define", "understand",
	"tutorial", "guide", "help", "learn",
	"question", "answer", "tips", "best practices",
}

var navigationalKeywords = []string{
	"login", "signin", "register", "sign up",
	"home", "homepage", "official", "website",
	"app", "download", "connect",
}

var transactionalKeywords = []string{
	"buy", "purchase", "order", "checkout",
	"download", "install", "register", "subscribe",
	"sign up", "book", "reserve", "rent",
}

var commercialKeywords = []string{
	"best", "top", "review", "reviews",
	"pricing", "price", "cost", "free",
	"vs", "comparison", "pros cons", "worth",
	"alternative", "alternative to",
}

var localKeywords = []string{
	"near me", "nearby", "local", "location",
	"address", "hours", "phone", "directions",
}

// Analysis is the port of IntentAnalysis, scoped to what the crawl
// pipeline persists: the primary intent and its confidence.
type Analysis struct {
	Query            string
	PrimaryIntent    string
	SecondaryIntents []string
	Confidence       float64
	Keywords         []string
	Modifiers        []string
}

// Analyze scores query (here, the page title) against five intent keyword
// sets and returns the highest-scoring intent plus, as secondary intents,
// every other intent with a non-zero score of at least 20% of the top score.
func Analyze(query string) Analysis {
	lower := strings.ToLower(query)

	scores := map[string]float64{
		Informational: 0,
		Navigational:  0,
		Transactional: 0,
		Commercial:    0,
		Local:         0,
	}
	var keywords, modifiers []string

	scoreKeywords(lower, informationalKeywords, scores, Informational, &keywords)
	scoreKeywords(lower, navigationalKeywords, scores, Navigational, &keywords)
	scoreKeywords(lower, transactionalKeywords, scores, Transactional, &keywords)
	if scoreKeywords(lower, commercialKeywords, scores, Commercial, &keywords) {
		modifiers = append(modifiers, "comparison")
	}
	if scoreKeywords(lower, localKeywords, scores, Local, &keywords) {
		modifiers = append(modifiers, "location-based")
	}

	if strings.Contains(lower, "free") {
		modifiers = append(modifiers, "free")
	}
	if strings.Contains(lower, "cheapest") {
		modifiers = append(modifiers, "budget")
	}
	if strings.Contains(lower, "2024") || strings.Contains(lower, "2025") || strings.Contains(lower, "2026") {
		modifiers = append(modifiers, "recent")
	}

	primary, max := Informational, -1.0
	for _, k := range []string{Informational, Navigational, Transactional, Commercial, Local} {
		if scores[k] > max {
			max = scores[k]
			primary = k
		}
	}

	var secondary []string
	threshold := 0.0
	if max > 0 {
		threshold = max * 0.2
	}
	for _, k := range []string{Informational, Navigational, Transactional, Commercial, Local} {
		if k != primary && scores[k] >= threshold && scores[k] > 0 {
			secondary = append(secondary, k)
		}
	}

	confidence := max
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	}

	return Analysis{
		Query:            query,
		PrimaryIntent:    primary,
		SecondaryIntents: secondary,
		Confidence:       confidence,
		Keywords:         dedupe(keywords),
		Modifiers:        dedupe(modifiers),
	}
}

func scoreKeywords(lower string, set []string, scores map[string]float64, kind string, keywords *[]string) bool {
	count := 0
	for _, kw := range set {
		if strings.Contains(lower, kw) {
			count++
			*keywords = append(*keywords, kw)
		}
	}
	scores[kind] = float64(count) * 0.25
	return count > 0
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
