package model

import "time"

// JobStatus represents the current state of a background job.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// Job is the observable handle for background pipeline work. It replaces
// fire-and-forget execution: callers submit work, poll status, and retrieve
// the result once the job settles.
type Job struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Company   string     `json:"company"`
	Status    JobStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Terminal reports whether the job has settled.
func (j *Job) Terminal() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}
