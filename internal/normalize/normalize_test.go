package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{
		"HTTPS://Example.com/Path/",
		"http://example.com/a?b=2&a=1&c=",
		"https://example.com/",
		"https://example.com",
	}
	for _, c := range cases {
		once, err := Normalize(c)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalize not idempotent for %q", c)
	}
}

func TestNormalizeLowercasesSchemeAndHostPreservesPathCase(t *testing.T) {
	got, err := Normalize("HTTPS://Example.COM/Path/Case")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Path/Case", got)
}

func TestNormalizeSortsQueryStably(t *testing.T) {
	got, err := Normalize("http://example.com/?b=2&a=1&blank=")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/?a=1&b=2&blank=", got)
}

func TestNormalizeSortsByKeyOnlyPreservingRepeatedKeyOrder(t *testing.T) {
	got, err := Normalize("http://example.com/?b=1&a=2&b=0")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/?a=2&b=1&b=0", got)
}

func TestNormalizeStripsFragmentAndTrailingSlash(t *testing.T) {
	got, err := Normalize("http://example.com/path/#section")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/path", got)
}

func TestNormalizeKeepsRootSlash(t *testing.T) {
	got, err := Normalize("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/", got)
}

func TestValidRejectsBinaryExtensions(t *testing.T) {
	assert.False(t, Valid("https://example.com/file.pdf"))
	assert.False(t, Valid("https://example.com/img.JPG"))
	assert.True(t, Valid("https://example.com/article"))
}

func TestValidRejectsBadScheme(t *testing.T) {
	assert.False(t, Valid("ftp://example.com/x"))
	assert.False(t, Valid("mailto:a@b.com"))
}

func TestSameRegisteredHost(t *testing.T) {
	assert.True(t, SameRegisteredHost("example.com", "example.com"))
	assert.True(t, SameRegisteredHost("example.com", "www.example.com"))
	assert.False(t, SameRegisteredHost("example.com", "evil-example.com"))
	assert.False(t, SameRegisteredHost("example.com", "notexample.com"))
}
