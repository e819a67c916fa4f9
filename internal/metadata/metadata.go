// Package metadata assembles the per-page PageMetadata record from the L3
// extractor outputs (metadata, images, favicon), grounded on
// original_source's MetadataAnalyzer.extract_metadata which returns the
// same combined bundle from its three sub-extractions in one call.
package metadata

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/transparent-search/crawlcore/internal/extract"
	"github.com/transparent-search/crawlcore/internal/model"
)

// Build runs the L3 extractors against rawHTML and assembles a
// model.PageMetadata ready for persistence. It also returns the raw
// extract.Metadata so callers (the crawler pipeline's scorer/spam stages)
// can read fields, like WordCount, that PageMetadata doesn't persist.
func Build(ctx context.Context, client *http.Client, jobID string, pageURL string, rawHTML []byte) (*model.PageMetadata, *extract.Metadata, error) {
	m, err := extract.Extract(rawHTML, pageURL)
	if err != nil {
		return nil, nil, err
	}

	base, _ := url.Parse(pageURL)

	doc, _, err := extract.ParseForFavicon(rawHTML)
	var faviconURL string
	if err == nil {
		faviconURL, _ = extract.Favicon(ctx, client, doc, base)
	}

	images := make([]model.ImageRef, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, model.ImageRef{
			URL:        img.URL,
			Alt:        img.Alt,
			Title:      img.Title,
			Width:      img.Width,
			Height:     img.Height,
			Responsive: img.Responsive,
			Position:   img.Position,
		})
	}

	return &model.PageMetadata{
		ID:                uuid.NewString(),
		JobID:             jobID,
		URL:               pageURL,
		Title:             m.Title,
		Description:       m.Description,
		CanonicalURL:      m.CanonicalURL,
		Language:          m.Language,
		Author:            m.Author,
		Keywords:          m.Keywords,
		OpenGraph:         m.OpenGraph,
		TwitterCard:       m.TwitterCard,
		RobotsIndex:       m.RobotsIndex,
		RobotsFollow:      m.RobotsFollow,
		RobotsArchive:     m.RobotsArchive,
		RobotsSnippet:     m.RobotsSnippet,
		PublishDate:       m.PublishDate,
		ModifiedDate:      m.ModifiedDate,
		H1:                m.H1,
		H2:                m.H2,
		H3:                m.H3,
		HasStructuredData: m.HasStructuredData,
		StructuredData:    m.StructuredData,
		InternalLinks:     m.InternalLinks,
		ExternalLinks:     m.ExternalLinks,
		Images:            images,
		BodyMarkdown:      m.BodyMarkdown,
		RawHTML:           string(rawHTML),
		FaviconURL:        faviconURL,
		CreatedAt:         time.Now(),
	}, m, nil
}
