// Package extract pulls structured metadata, images, and favicon
// candidates out of a fetched HTML document, grounded on the teacher's
// content_helpers.go boilerplate-stripping selector list and goquery usage,
// enriched with html-to-markdown, chardet, and sanitize the way the rest of
// the corpus wires them for the same jobs.
package extract

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kennygrant/sanitize"

	"github.com/transparent-search/crawlcore/internal/normalize"
)

// boilerplateSelectors is the teacher's content_helpers.go strip list,
// carried over unchanged: nav/ad/social/comment chrome never belongs in
// extracted body text.
var boilerplateSelectors = []string{
	"script", "style", "noscript", "iframe", "object", "embed",
	"nav", "header", "footer", "aside", ".nav", ".navbar", ".sidebar", ".menu",
	".ad", ".ads", ".advertisement", ".google-ad", ".banner", ".popup", ".modal",
	".social", ".share", ".facebook", ".twitter", ".instagram", ".linkedin",
	".comments", ".comment", "#comments", "#comment",
	".button", ".btn", "button",
	".scroll", ".skip", ".toggle",
	"[class*='cookie']", "[class*='gdpr']",
	".elementor-action",
}

// Metadata is everything L3 pulls out of one page plus the raw body needed
// by downstream scoring and indexing steps.
type Metadata struct {
	Title        string
	TitleSource  string
	Description  string
	CanonicalURL string
	Language     string
	Author       string
	Keywords     []string

	OpenGraph   map[string]string
	TwitterCard map[string]string

	RobotsIndex   bool
	RobotsFollow  bool
	RobotsArchive bool
	RobotsSnippet bool

	PublishDate  *time.Time
	ModifiedDate *time.Time

	H1, H2, H3 []string

	HasStructuredData bool
	StructuredData    []string

	InternalLinks []string
	ExternalLinks []string

	Images []ImageCandidate

	BodyMarkdown string
	WordCount    int
}

// Extract parses rawHTML (transcoded to UTF-8 first) relative to pageURL and
// returns its Metadata bundle.
func Extract(rawHTML []byte, pageURL string) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(toUTF8(rawHTML))))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(pageURL)

	m := &Metadata{
		OpenGraph:     map[string]string{},
		TwitterCard:   map[string]string{},
		RobotsIndex:   true,
		RobotsFollow:  true,
		RobotsArchive: true,
		RobotsSnippet: true,
	}

	extractOpenGraphAndTwitter(doc, m)
	extractRobotsMeta(doc, m)
	extractTitle(doc, m, pageURL)
	extractDescription(doc, m)
	extractCanonical(doc, m, base)
	extractLanguage(doc, m)
	extractHeadings(doc, m)
	extractJSONLD(doc, m)
	extractDates(doc, m)
	extractAuthorAndKeywords(doc, m)
	extractLinks(doc, m, base)
	m.Images = extractImages(doc, base)

	body, wc := bodyMarkdown(doc)
	m.BodyMarkdown = body
	m.WordCount = wc

	return m, nil
}

func extractOpenGraphAndTwitter(doc *goquery.Document, m *Metadata) {
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if prop != "" && content != "" {
			m.OpenGraph[strings.TrimPrefix(prop, "og:")] = content
		}
	})
	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if name != "" && content != "" {
			m.TwitterCard[strings.TrimPrefix(name, "twitter:")] = content
		}
	})
}

func extractRobotsMeta(doc *goquery.Document, m *Metadata) {
	content, ok := doc.Find(`meta[name="robots"]`).Attr("content")
	if !ok {
		return
	}
	directives := strings.Split(strings.ToLower(content), ",")
	has := func(d string) bool {
		for _, x := range directives {
			if strings.TrimSpace(x) == d {
				return true
			}
		}
		return false
	}
	if has("noindex") {
		m.RobotsIndex = false
	}
	if has("nofollow") {
		m.RobotsFollow = false
	}
	if has("noarchive") {
		m.RobotsArchive = false
	}
	if has("nosnippet") {
		m.RobotsSnippet = false
	}
}

func extractTitle(doc *goquery.Document, m *Metadata, pageURL string) {
	if t := m.OpenGraph["title"]; t != "" {
		m.Title = sanitize.HTML(t)
		m.TitleSource = "og:title"
		return
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		m.Title = sanitize.HTML(t)
		m.TitleSource = "title"
		return
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		m.Title = sanitize.HTML(t)
		m.TitleSource = "h1"
		return
	}
	if u, err := url.Parse(pageURL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := segments[len(segments)-1]; last != "" {
			m.Title = last
			m.TitleSource = "url_path"
			return
		}
	}
	m.Title = pageURL
	m.TitleSource = "url"
}

func extractDescription(doc *goquery.Document, m *Metadata) {
	if d := m.OpenGraph["description"]; d != "" {
		m.Description = sanitize.HTML(d)
		return
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		m.Description = sanitize.HTML(strings.TrimSpace(d))
	}
}

func extractCanonical(doc *goquery.Document, m *Metadata, base *url.URL) {
	href, ok := doc.Find(`link[rel="canonical"]`).Attr("href")
	if !ok {
		return
	}
	m.CanonicalURL = resolve(base, href)
}

func extractLanguage(doc *goquery.Document, m *Metadata) {
	if lang, ok := doc.Find("html").Attr("lang"); ok && lang != "" {
		m.Language = lang
		return
	}
	if content, ok := doc.Find(`meta[http-equiv="content-language"]`).Attr("content"); ok {
		m.Language = content
	}
}

func extractHeadings(doc *goquery.Document, m *Metadata) {
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			m.H1 = append(m.H1, t)
		}
	})
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			m.H2 = append(m.H2, t)
		}
	})
	doc.Find("h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			m.H3 = append(m.H3, t)
		}
	})
}

// extractJSONLD collects every application/ld+json payload, decoding each
// independently so one malformed block doesn't discard the rest.
func extractJSONLD(doc *goquery.Document, m *Metadata) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var probe any
		if err := json.Unmarshal([]byte(raw), &probe); err != nil {
			return
		}
		m.HasStructuredData = true
		m.StructuredData = append(m.StructuredData, raw)
	})
}

func extractDates(doc *goquery.Document, m *Metadata) {
	publishCandidates := []string{"article:published_time"}
	modifiedCandidates := []string{"article:modified_time"}

	if v := firstMetaProperty(doc, publishCandidates); v != "" {
		m.PublishDate = parseDate(v)
	}
	if v := firstMetaProperty(doc, modifiedCandidates); v != "" {
		m.ModifiedDate = parseDate(v)
	}
	if m.PublishDate == nil {
		if v, ok := doc.Find(`meta[name="date"]`).Attr("content"); ok {
			m.PublishDate = parseDate(v)
		}
	}
	if m.PublishDate == nil {
		m.PublishDate = firstJSONLDDate(m.StructuredData, "datePublished")
	}
	if m.ModifiedDate == nil {
		m.ModifiedDate = firstJSONLDDate(m.StructuredData, "dateModified")
	}
}

func firstMetaProperty(doc *goquery.Document, properties []string) string {
	for _, p := range properties {
		if v, ok := doc.Find(`meta[property="` + p + `"]`).Attr("content"); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstJSONLDDate(blocks []string, field string) *time.Time {
	for _, b := range blocks {
		var obj map[string]any
		if err := json.Unmarshal([]byte(b), &obj); err != nil {
			continue
		}
		if v, ok := obj[field].(string); ok && v != "" {
			if t := parseDate(v); t != nil {
				return t
			}
		}
	}
	return nil
}

func parseDate(v string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func extractAuthorAndKeywords(doc *goquery.Document, m *Metadata) {
	if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok && v != "" {
		m.Author = v
	} else if v := firstMetaProperty(doc, []string{"article:author"}); v != "" {
		m.Author = v
	} else {
		m.Author = firstJSONLDAuthor(m.StructuredData)
	}

	if v, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok && v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				m.Keywords = append(m.Keywords, k)
			}
		}
	}
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && v != "" {
			m.Keywords = append(m.Keywords, v)
		}
	})
}

func firstJSONLDAuthor(blocks []string) string {
	for _, b := range blocks {
		var obj map[string]any
		if err := json.Unmarshal([]byte(b), &obj); err != nil {
			continue
		}
		switch v := obj["author"].(type) {
		case string:
			return v
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				return name
			}
		}
	}
	return ""
}

func extractLinks(doc *goquery.Document, m *Metadata, base *url.URL) {
	if base == nil {
		return
	}
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolve(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		normalized, err := normalize.Normalize(resolved)
		if err != nil || !normalize.Valid(normalized) {
			return
		}
		seen[resolved] = true
		u, err := url.Parse(normalized)
		if err != nil {
			return
		}
		if normalize.SameRegisteredHost(base.Hostname(), u.Hostname()) {
			m.InternalLinks = append(m.InternalLinks, normalized)
		} else {
			m.ExternalLinks = append(m.ExternalLinks, normalized)
		}
	})
}

func resolve(base *url.URL, href string) string {
	if base == nil || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func bodyMarkdown(doc *goquery.Document) (string, int) {
	clone := doc.Clone()
	for _, sel := range boilerplateSelectors {
		clone.Find(sel).Remove()
	}
	clone.Find("img[src^='data:']").Remove()

	html, err := clone.Find("body").Html()
	if err != nil || html == "" {
		return "", 0
	}

	markdown := convertToMarkdown(html)
	wordCount := len(strings.Fields(clone.Find("body").Text()))
	return markdown, wordCount
}

// ImageCandidate mirrors model.ImageRef. Width and Height hold the img
// attributes parsed as integers; a missing or non-numeric value is 0.
type ImageCandidate struct {
	URL        string
	Alt        string
	Title      string
	Width      int
	Height     int
	Responsive bool
	Position   int
}

func extractImages(doc *goquery.Document, base *url.URL) []ImageCandidate {
	var out []ImageCandidate
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved := src
		if base != nil {
			resolved = resolve(base, src)
		}
		if resolved == "" {
			return
		}

		srcset, _ := s.Attr("srcset")
		sizes, _ := s.Attr("sizes")
		class, _ := s.Attr("class")
		responsive := srcset != "" || sizes != "" || strings.Contains(strings.ToLower(class), "responsive")

		width, _ := strconv.Atoi(attrOr(s, "width", ""))
		height, _ := strconv.Atoi(attrOr(s, "height", ""))

		out = append(out, ImageCandidate{
			URL:        resolved,
			Alt:        attrOr(s, "alt", ""),
			Title:      attrOr(s, "title", ""),
			Width:      width,
			Height:     height,
			Responsive: responsive,
			Position:   i,
		})
	})
	return out
}

func attrOr(s *goquery.Selection, attr, fallback string) string {
	if v, ok := s.Attr(attr); ok {
		return v
	}
	return fallback
}
