package extract

import (
	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
)

// convertToMarkdown renders already-boilerplate-stripped body HTML to
// markdown, replacing the teacher's hand-rolled goquery walker
// (processElementToMarkdown) with a maintained converter fed the same
// pruned document.
func convertToMarkdown(bodyHTML string) string {
	converter := htmlmd.NewConverter("", true, nil)
	out, err := converter.ConvertString(bodyHTML)
	if err != nil {
		return ""
	}
	return out
}
