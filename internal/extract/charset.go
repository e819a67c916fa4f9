package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// toUTF8 sniffs body's encoding with chardet (bluesnake's DetectCharset
// feature) and transcodes non-UTF8 documents so the rest of the extractor
// chain can assume valid UTF-8 input.
func toUTF8(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}

	det := chardet.NewTextDetector()
	result, err := det.DetectBest(body)
	if err != nil || result == nil || strings.EqualFold(result.Charset, "UTF-8") {
		return body
	}

	enc, _ := charset.Lookup(result.Charset)
	if enc == nil {
		return body
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return body
	}
	return decoded
}
