package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

func newTestJobStore(t *testing.T) *SQLiteJobStore {
	t.Helper()
	s, err := NewSQLiteJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJobStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestJobStore(t)

	job, err := s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobQueued, job.Status)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "run", got.Name)
	assert.Equal(t, "acme", got.Company)
	assert.False(t, got.Terminal())
}

func TestJobStoreGetUnknownJob(t *testing.T) {
	s := newTestJobStore(t)
	_, err := s.GetJob(context.Background(), "no-such-id")
	assert.ErrorContains(t, err, "not found")
}

func TestJobStoreStatusTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestJobStore(t)

	job, err := s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, model.JobRunning))
	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, got.Status)

	assert.ErrorContains(t, s.UpdateJobStatus(ctx, "missing", model.JobRunning), "not found")
}

func TestJobStoreCompleteWithResult(t *testing.T) {
	ctx := context.Background()
	s := newTestJobStore(t)

	job, err := s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)

	result := &model.RunResult{
		Company:  "acme",
		Download: &model.DownloadSummary{Total: 4, Written: 3, Skipped: 1},
	}
	require.NoError(t, s.CompleteJob(ctx, job.ID, result, ""))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, got.Status)
	assert.True(t, got.Terminal())
	require.NotNil(t, got.Result)
	assert.Equal(t, 3, got.Result.Download.Written)
	assert.Empty(t, got.Error)
}

func TestJobStoreCompleteWithError(t *testing.T) {
	ctx := context.Background()
	s := newTestJobStore(t)

	job, err := s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)
	require.NoError(t, s.CompleteJob(ctx, job.ID, nil, "manifest not found"))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "manifest not found", got.Error)
	assert.Nil(t, got.Result)
}

func TestJobStoreListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestJobStore(t)

	a, err := s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, "run", "acme")
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, "run", "globex")
	require.NoError(t, err)
	require.NoError(t, s.CompleteJob(ctx, a.ID, nil, ""))

	all, err := s.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	acme, err := s.ListJobs(ctx, JobFilter{Company: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	done, err := s.ListJobs(ctx, JobFilter{Status: model.JobComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)

	limited, err := s.ListJobs(ctx, JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
