package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
}

func TestLoadParsesTOMLSiteList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[mongo]
uri = "mongodb://db:27017"
database = "crawl"

[[sites]]
domain = "example.com"
max_depth = 2
page_limit = 500
enable_js_rendering = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "example.com", cfg.Sites[0].Domain)
	assert.True(t, cfg.Sites[0].EnableJSRendering)
}

func TestEnvOverrideWinsOverTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mongo]\nuri = \"mongodb://db:27017\"\n"), 0o600))

	t.Setenv("CRAWLCORE_MONGO_URI", "mongodb://override:27017")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://override:27017", cfg.Mongo.URI)
}

func TestLoadErrorsOnMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	assert.Error(t, err)
}
