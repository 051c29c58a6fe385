// Package jobs tracks background pipeline work through observable handles
// instead of fire-and-forget goroutines.
package jobs

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

// RunFunc is the unit of background work a job executes.
type RunFunc func(ctx context.Context) (*model.RunResult, error)

// Manager submits and tracks jobs, persisting every state transition.
type Manager struct {
	store store.JobStore
	wg    sync.WaitGroup
}

// NewManager creates a Manager over the given job store.
func NewManager(js store.JobStore) *Manager {
	return &Manager{store: js}
}

// Submit registers a job and starts it in the background. The returned job
// handle is in the queued state; callers poll Get for progress and the
// final result. ctx governs the job's whole execution, not just submission.
func (m *Manager) Submit(ctx context.Context, name, company string, fn RunFunc) (*model.Job, error) {
	job, err := m.store.CreateJob(ctx, name, company)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create")
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, job.ID, fn)
	}()

	return job, nil
}

func (m *Manager) run(ctx context.Context, jobID string, fn RunFunc) {
	log := zap.L().With(zap.String("job_id", jobID))

	if err := m.store.UpdateJobStatus(ctx, jobID, model.JobRunning); err != nil {
		log.Error("failed to mark job running", zap.Error(err))
	}

	result, err := fn(ctx)
	if err != nil {
		log.Error("job failed", zap.Error(err))
		if serr := m.store.CompleteJob(ctx, jobID, result, err.Error()); serr != nil {
			log.Error("failed to record job failure", zap.Error(serr))
		}
		return
	}

	log.Info("job complete")
	if serr := m.store.CompleteJob(ctx, jobID, result, ""); serr != nil {
		log.Error("failed to record job completion", zap.Error(serr))
	}
}

// Get returns the current state of a job.
func (m *Manager) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return m.store.GetJob(ctx, jobID)
}

// List returns jobs matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter store.JobFilter) ([]model.Job, error) {
	return m.store.ListJobs(ctx, filter)
}

// Wait blocks until every submitted job has settled. Intended for shutdown
// and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}
