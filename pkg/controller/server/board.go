package server

import (
	"sync"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
)

const statusRunning = "RUNNING"

// JobStatus is the operator view of the latest run of a job.
type JobStatus struct {
	JobID      types.JobID   `json:"job_id"`
	Kind       types.JobKind `json:"kind"`
	Status     string        `json:"status"`
	RunID      types.RunID   `json:"run_id,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Read       int           `json:"read"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Written    int           `json:"written"`
	Duplicates int           `json:"duplicates"`
	Retries    int           `json:"retries"`
	LastCursor model.Cursor  `json:"last_cursor,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Board keeps the latest status of each job for the status endpoint.
type Board struct {
	mu       sync.RWMutex
	order    []types.JobID
	statuses map[types.JobID]*JobStatus
}

func NewBoard() *Board {
	return &Board{statuses: map[types.JobID]*JobStatus{}}
}

// Start marks jobs as running.
func (x *Board) Start(jobs []*model.Job) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, job := range jobs {
		if _, ok := x.statuses[job.ID]; !ok {
			x.order = append(x.order, job.ID)
		}
		x.statuses[job.ID] = &JobStatus{JobID: job.ID, Kind: job.Kind, Status: statusRunning}
	}
}

// Finish records run reports. Nil reports, from jobs that never started, are
// ignored.
func (x *Board) Finish(reports []*model.RunReport) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, report := range reports {
		if report == nil {
			continue
		}
		status, ok := x.statuses[report.JobID]
		if !ok {
			status = &JobStatus{JobID: report.JobID}
			x.statuses[report.JobID] = status
			x.order = append(x.order, report.JobID)
		}

		status.Status = string(report.Status)
		status.RunID = report.RunID
		status.Reason = report.Reason
		status.Read = report.Read
		status.Processed = report.Processed
		status.Skipped = report.Skipped
		status.Written = report.Written
		status.Duplicates = report.Duplicates
		status.Retries = report.Retries
		status.LastCursor = report.LastCursor
		status.LastError = ""
		if report.LastError != nil {
			status.LastError = report.LastError.Error()
		}
		startedAt, finishedAt := report.StartedAt, report.FinishedAt
		status.StartedAt = &startedAt
		status.FinishedAt = &finishedAt
	}
}

func (x *Board) Statuses() []*JobStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()

	statuses := make([]*JobStatus, 0, len(x.order))
	for _, id := range x.order {
		copied := *x.statuses[id]
		statuses = append(statuses, &copied)
	}
	return statuses
}

func (x *Board) Status(jobID string) *JobStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()

	status, ok := x.statuses[types.JobID(jobID)]
	if !ok {
		return nil
	}
	copied := *status
	return &copied
}
