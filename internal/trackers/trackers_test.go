package trackers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectNoTrackersIsClean(t *testing.T) {
	report, err := Detect(`<html><body><p>hello</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count)
	assert.Equal(t, 1.0, report.RiskScore)
	assert.Equal(t, "clean", report.RiskProfile)
}

func TestDetectScriptSrcAndInline(t *testing.T) {
	html := `<html><body>
		<script src="https://www.google-analytics.com/analytics.js"></script>
		<script src="https://connect.facebook.net/en_US/fbevents.js"></script>
		<script>gtag('config', 'UA-1');</script>
		<iframe src="https://hotjar.com/embed"></iframe>
		<img src="https://example.com/track/pixel.gif">
	</body></html>`
	report, err := Detect(html)
	require.NoError(t, err)
	assert.True(t, report.Count >= 3)
	assert.Less(t, report.RiskScore, 1.0)
}

func TestDetectDeduplicatesByDomain(t *testing.T) {
	html := `<html><body>
		<script src="https://www.google-analytics.com/a.js"></script>
		<script src="https://www.google-analytics.com/b.js"></script>
	</body></html>`
	report, err := Detect(html)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
}

func TestRiskProfileBands(t *testing.T) {
	assert.Equal(t, "clean", riskProfile(0.95))
	assert.Equal(t, "minimal", riskProfile(0.75))
	assert.Equal(t, "moderate", riskProfile(0.55))
	assert.Equal(t, "heavy", riskProfile(0.35))
	assert.Equal(t, "severe", riskProfile(0.1))
}
