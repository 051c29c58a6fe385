package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls_acme.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "urls_acme.json", PathFor("acme"))
}

func TestLoadValidManifest(t *testing.T) {
	path := writeManifest(t, `{
		"results": [
			{"details": "Interim Report Q1 2024", "download_url": "https://example.com/q1.pdf"},
			{"details": "Interim Report Q2 2024", "download_url": "https://example.com/q2.pdf"}
		]
	}`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Results, 2)
	assert.Equal(t, "Interim Report Q1 2024", m.Results[0].Details)
	assert.Equal(t, "https://example.com/q2.pdf", m.Results[1].DownloadURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "urls_none.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeManifest(t, `{"results": [`))
	assert.ErrorContains(t, err, "parse")
}

func TestLoadEmptyResults(t *testing.T) {
	_, err := Load(writeManifest(t, `{"results": []}`))
	assert.ErrorContains(t, err, "no results")
}

func TestLoadEmptyDetails(t *testing.T) {
	_, err := Load(writeManifest(t, `{
		"results": [{"details": "", "download_url": "https://example.com/a.pdf"}]
	}`))
	assert.ErrorContains(t, err, "empty details")
}

func TestLoadInvalidURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "/relative/path.pdf", "example.com/a.pdf"} {
		_, err := Load(writeManifest(t, `{
			"results": [{"details": "Report", "download_url": "`+bad+`"}]
		}`))
		assert.ErrorContains(t, err, "invalid download_url", "url: %q", bad)
	}
}
