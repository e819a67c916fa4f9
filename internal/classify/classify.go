// Package classify assigns a content-type tag to a URL by pattern, grounded
// on original_source's app/services/indexer.py ContentClassifier.
// classify_by_url. No type is inherently preferred — the tag only changes
// which weights internal/quality applies.
package classify

import "strings"

const (
	Video          = "video"
	Manga          = "manga"
	Image          = "image"
	PDF            = "pdf"
	CodeRepository = "code_repository"
	SocialMedia    = "social_media"
	OfficialSite   = "official_site"
	Blog           = "blog"
)

var videoPatterns = []string{
	"youtube.com", "youtu.be", "vimeo.com", "dailymotion.com",
	"netflix.com", "hulu.com", "twitch.tv", "niconico.jp",
	"/video", "/videos", "/stream", ".mp4", ".webm", ".mov",
}

var mangaPatterns = []string{
	"manga", "manganelo", "mangakakalot", "webtoon", "comic", "doujin",
	"pixiv", "booth", "dlsite", "/ch/", "/episode",
}

var imagePatterns = []string{
	".jpg", ".png", ".gif", ".webp",
	"/image", "/images", "/photo", "/gallery",
	"imgur", "flickr", "500px",
}

var pdfPatterns = []string{".pdf", "/pdf"}

var codePatterns = []string{"/github", "/gitlab", "/bitbucket"}

var socialPatterns = []string{
	"/twitter", "/facebook", "/instagram", "/tiktok",
	"twitter.com", "facebook.com", "instagram.com", "tiktok.com", "x.com",
}

var officialPatterns = []string{
	"www.", "/official", "/about", "/company", "/products", "/service", "/contact",
}

// ByURL classifies rawURL by ordered pattern checks. Default is Blog.
func ByURL(rawURL string) string {
	lower := strings.ToLower(rawURL)

	switch {
	case containsAny(lower, videoPatterns):
		return Video
	case containsAny(lower, mangaPatterns):
		return Manga
	case containsAny(lower, imagePatterns):
		return Image
	case containsAny(lower, pdfPatterns):
		return PDF
	case containsAny(lower, codePatterns):
		return CodeRepository
	case containsAny(lower, socialPatterns):
		return SocialMedia
	case containsAny(lower, officialPatterns):
		return OfficialSite
	default:
		return Blog
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
