package crawler

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const jsRenderTimeout = 15 * time.Second

// renderWithJS is the optional Tier-1.5 hook SPEC_FULL.md §4.9 carves out of
// the Non-goal on headless rendering: it only fires when a Job explicitly
// requests it, grounded on the teacher's tryJSDOMRendering but trimmed to a
// single navigate+wait+capture cycle (no scroll simulation — that tier
// existed to trigger lazy-loaded images, out of scope for metadata
// extraction).
func renderWithJS(targetURL string) (string, error) {
	l := launcher.New().Headless(true).NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-gpu")

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("crawler: launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("crawler: connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Timeout(jsRenderTimeout).Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		return "", fmt.Errorf("crawler: open page: %w", err)
	}
	defer page.MustClose()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("crawler: wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("crawler: read html: %w", err)
	}
	return html, nil
}
