// Package manifest loads and validates the input manifest of report URLs.
package manifest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/rotisserie/eris"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

// PathFor returns the conventional manifest location for a company.
func PathFor(company string) string {
	return fmt.Sprintf("urls_%s.json", company)
}

// Load reads and validates a manifest file. Manifest problems are boundary
// errors: they fail fast before any batch work starts.
func Load(path string) (*model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}

	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}

	if len(m.Results) == 0 {
		return nil, eris.Errorf("manifest: %s contains no results", path)
	}

	for i, item := range m.Results {
		if item.Details == "" {
			return nil, eris.Errorf("manifest: item %d has empty details", i)
		}
		u, err := url.Parse(item.DownloadURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, eris.Errorf("manifest: item %d has invalid download_url %q", i, item.DownloadURL)
		}
	}

	return &m, nil
}
