package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirStoreCreatesConventionalDir(t *testing.T) {
	root := t.TempDir()

	s, err := NewDirStore(root, "Ceylon Beverage Holdings PLC")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "ceylon_beverage_holdings_plc_data"), s.Dir())
	assert.DirExists(t, s.Dir())
}

func TestOpenDirStoreRequiresExistingDir(t *testing.T) {
	_, err := OpenDirStore(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	_, err = OpenDirStore(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestDirStoreWriteReadList(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir(), "acme")
	require.NoError(t, err)

	_, err = s.Write(ctx, "31_03_2024.json", []byte(`{"revenue": 1}`))
	require.NoError(t, err)
	_, err = s.Write(ctx, "30_06_2024.json", []byte(`{"revenue": 2}`))
	require.NoError(t, err)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"30_06_2024.json", "31_03_2024.json"}, names, "listing is sorted")

	data, err := s.Read(ctx, "31_03_2024.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"revenue": 1}`, string(data))
}

func TestDirStoreCollisionSuffix(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir(), "acme")
	require.NoError(t, err)

	first, err := s.Write(ctx, "31_12_2023.json", []byte(`{"n": 1}`))
	require.NoError(t, err)
	second, err := s.Write(ctx, "31_12_2023.json", []byte(`{"n": 2}`))
	require.NoError(t, err)
	third, err := s.Write(ctx, "31_12_2023.json", []byte(`{"n": 3}`))
	require.NoError(t, err)

	assert.Equal(t, "31_12_2023.json", filepath.Base(first))
	assert.Equal(t, "31_12_2023_1.json", filepath.Base(second))
	assert.Equal(t, "31_12_2023_2.json", filepath.Base(third))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3, "colliding records all survive")
}

func TestDirStoreConcurrentWritersNeverOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir(), "acme")
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Write(ctx, "30_09_2024.json", []byte(`{}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, writers)
}

func TestDirStoreWriteErrorLazyDir(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir(), "acme")
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(s.Dir(), "errors"))

	path, err := s.WriteError(ctx, "31_12_2023_error.txt", "model returned malformed JSON")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.Dir(), "errors", "31_12_2023_error.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "model returned malformed JSON", string(data))
}

func TestDirStoreListIgnoresSubdirsAndNonJSON(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir(), "acme")
	require.NoError(t, err)

	_, err = s.Write(ctx, "31_12_2023.json", []byte(`{}`))
	require.NoError(t, err)
	_, err = s.WriteError(ctx, "broken_error.txt", "raw text")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"31_12_2023.json"}, names)
}
