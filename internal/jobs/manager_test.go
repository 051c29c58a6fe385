package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	js, err := store.NewSQLiteJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	require.NoError(t, js.Migrate(context.Background()))
	t.Cleanup(func() { _ = js.Close() })
	return NewManager(js)
}

func TestSubmitRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	job, err := mgr.Submit(ctx, "run", "acme", func(context.Context) (*model.RunResult, error) {
		return &model.RunResult{Company: "acme"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, job.Status)

	mgr.Wait()

	got, err := mgr.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "acme", got.Result.Company)
}

func TestSubmitRecordsFailure(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	job, err := mgr.Submit(ctx, "run", "acme", func(context.Context) (*model.RunResult, error) {
		return nil, errors.New("manifest not found")
	})
	require.NoError(t, err)

	mgr.Wait()

	got, err := mgr.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "manifest not found", got.Error)
	assert.Nil(t, got.Result)
}

func TestSubmitPassesContextToWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mgr := newTestManager(t)

	started := make(chan struct{})
	job, err := mgr.Submit(ctx, "run", "acme", func(jctx context.Context) (*model.RunResult, error) {
		close(started)
		<-jctx.Done()
		return nil, jctx.Err()
	})
	require.NoError(t, err)

	<-started
	cancel()
	mgr.Wait()

	// The final store write ran under the canceled context and may itself
	// fail, so the only safe assertion is that the work never completed.
	got, err := mgr.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.JobComplete, got.Status)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	for _, company := range []string{"acme", "globex"} {
		_, err := mgr.Submit(ctx, "run", company, func(context.Context) (*model.RunResult, error) {
			return nil, nil
		})
		require.NoError(t, err)
	}
	mgr.Wait()

	listed, err := mgr.List(ctx, store.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
