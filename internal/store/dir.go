package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/sanitize"
)

const errorsDirName = "errors"

// DirStore implements RecordStore on a flat directory of JSON files.
type DirStore struct {
	root string

	// mu serializes collision resolution so two concurrent writers can
	// never claim the same derived filename.
	mu sync.Mutex
}

// NewDirStore creates the conventional record directory for a company label
// (<root>/<sanitized label>_data) and returns a store over it.
func NewDirStore(outputRoot, companyLabel string) (*DirStore, error) {
	dir := filepath.Join(outputRoot, sanitize.Filename(companyLabel)+"_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create record dir %s", dir)
	}
	return &DirStore{root: dir}, nil
}

// OpenDirStore returns a store over an existing record directory.
// The directory must already exist.
func OpenDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "store: stat %s", dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("store: %s is not a directory", dir)
	}
	return &DirStore{root: dir}, nil
}

// Dir returns the record directory.
func (s *DirStore) Dir() string {
	return s.root
}

// List returns the names of all JSON records directly inside the directory,
// sorted for deterministic iteration.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read dir %s", s.root)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the raw bytes of one record.
func (s *DirStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return nil, eris.Wrapf(err, "store: read record %s", name)
	}
	return data, nil
}

// Write stores a record. If the name is already taken the record gets a
// numeric suffix (name_1.json, name_2.json, ...) instead of overwriting:
// two documents resolving to the same period end date both survive.
func (s *DirStore) Write(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.claimPath(s.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "store: write record %s", path)
	}
	return path, nil
}

// WriteError stores a raw-text error artifact under errors/, creating the
// subdirectory on first use.
func (s *DirStore) WriteError(ctx context.Context, name string, text string) (string, error) {
	errDir := filepath.Join(s.root, errorsDirName)
	if err := os.MkdirAll(errDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "store: create errors dir %s", errDir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.claimPath(errDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", eris.Wrapf(err, "store: write error artifact %s", path)
	}

	zap.L().Info("saved error artifact", zap.String("path", path))
	return path, nil
}

// claimPath picks the first free path for name within dir, suffixing on
// collision. Callers must hold mu across the write that follows so the
// claim is durable before the next claim inspects the directory.
func (s *DirStore) claimPath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			zap.L().Warn("record name collision, using suffix",
				zap.String("name", name),
				zap.String("path", candidate),
			)
			return candidate
		}
	}
}
