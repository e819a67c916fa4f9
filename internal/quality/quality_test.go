package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transparent-search/crawlcore/internal/classify"
)

func TestEvaluateRejectsInsufficientContent(t *testing.T) {
	result := Evaluate(Input{
		ContentType: classify.Blog,
		Metadata:    Metadata{Title: "A title long enough"},
		Content:     "too short",
		URL:         "https://example.com/post",
	})
	assert.False(t, result.ShouldIndex)
	assert.NotEmpty(t, result.RejectReason)
}

func TestEvaluateAcceptsRichBlogPost(t *testing.T) {
	content := ""
	for i := 0; i < 200; i++ {
		content += "word "
	}
	result := Evaluate(Input{
		ContentType: classify.Blog,
		Metadata: Metadata{
			Title:           "A Properly Sized Title For This Post",
			MetaDescription: "a useful description of the post",
			OGTitle:         "A Properly Sized Title For This Post",
			OGDescription:   "a useful description",
			OGImageURL:      "https://example.com/og.png",
			H1:              []string{"Heading"},
			H2:              []string{"one", "two", "three"},
		},
		Content: content,
		URL:     "https://example.com/post",
	})
	assert.True(t, result.ShouldIndex)
}

func TestEvaluatePenalizesSpamURLPatterns(t *testing.T) {
	content := ""
	for i := 0; i < 200; i++ {
		content += "word "
	}
	result := Evaluate(Input{
		ContentType: classify.Blog,
		Metadata:    Metadata{Title: "A Properly Sized Title"},
		Content:     content,
		URL:         "https://example.com/redirect?utm_source=ads",
	})
	assert.Less(t, result.Factors["url_quality"], 1.0)
}

func TestMinScoreVariesByContentType(t *testing.T) {
	assert.Equal(t, 0.35, minScoreFor(classify.SocialMedia))
	assert.Equal(t, 0.60, minScoreFor(classify.CodeRepository))
	assert.Equal(t, 0.50, minScoreFor("unknown_type"))
}
