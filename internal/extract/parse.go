package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseForFavicon re-parses rawHTML for callers (internal/metadata) that
// need direct *goquery.Document access for the favicon probe, which takes a
// parsed document rather than raw bytes.
func ParseForFavicon(rawHTML []byte) (*goquery.Document, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(toUTF8(rawHTML))))
	if err != nil {
		return nil, "", err
	}
	return doc, "", nil
}
