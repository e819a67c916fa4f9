package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>Fallback Title</title>
	<meta name="description" content="fallback description">
	<meta property="og:title" content="OG Title">
	<meta property="og:description" content="OG description">
	<meta name="robots" content="noindex, nofollow">
	<link rel="canonical" href="https://example.com/canonical">
	<link rel="icon" type="image/png" href="/static/favicon.png">
	<script type="application/ld+json">{"@type":"Article","datePublished":"2024-01-02T00:00:00Z","author":{"name":"Jane Doe"}}</script>
	<script type="application/ld+json">not json</script>
</head>
<body>
	<nav class="navbar">skip me</nav>
	<h1>Heading One</h1>
	<p>Some body text with enough words to count as content for the page.</p>
	<a href="/internal-page">internal</a>
	<a href="https://other.com/page">external</a>
	<img src="/img/one.png" alt="first image" srcset="/img/one@2x.png 2x">
	<img src="data:image/png;base64,AAAA" alt="skip">
</body>
</html>`

func TestExtractTitlePrefersOpenGraph(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "OG Title", m.Title)
	assert.Equal(t, "og:title", m.TitleSource)
}

func TestExtractRobotsDirectives(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	assert.False(t, m.RobotsIndex)
	assert.False(t, m.RobotsFollow)
	assert.True(t, m.RobotsArchive)
}

func TestExtractJSONLDSkipsBadPayload(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, m.HasStructuredData)
	require.Len(t, m.StructuredData, 1)
	assert.Equal(t, "Jane Doe", m.Author)
	require.NotNil(t, m.PublishDate)
	assert.Equal(t, 2024, m.PublishDate.Year())
}

func TestExtractLinksPartitionsInternalExternal(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, m.InternalLinks, 1)
	require.Len(t, m.ExternalLinks, 1)
	assert.Contains(t, m.InternalLinks[0], "internal-page")
	assert.Contains(t, m.ExternalLinks[0], "other.com")
}

func TestExtractImagesSkipsDataURIAndMarksResponsive(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, m.Images, 1)
	assert.True(t, m.Images[0].Responsive)
	assert.Equal(t, "first image", m.Images[0].Alt)
}

func TestExtractCanonicalAndHeadings(t *testing.T) {
	m, err := Extract([]byte(sampleHTML), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/canonical", m.CanonicalURL)
	assert.Equal(t, []string{"Heading One"}, m.H1)
}
