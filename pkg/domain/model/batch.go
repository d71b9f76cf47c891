package model

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
)

// Cursor is an opaque position marker of a backing service. The empty cursor
// means the first page.
type Cursor string

// PagedBatch is one page returned by a BatchService. Cursor is the position the
// page was read from and NextCursor must be presented on the next fetch unless
// IsLast is set.
type PagedBatch[T any] struct {
	Items      []T
	LevelName  string
	Cursor     Cursor
	NextCursor Cursor
	IsLast     bool
}

// ItemRejection is an expected per-item persistence failure such as a
// validation error or a constraint violation.
type ItemRejection struct {
	Index  int
	Reason string
}

// SaveResult reports the outcome of a persistence call per item.
// Duplicates holds indexes of items already stored with the same key; they
// are neither saved nor rejected.
type SaveResult struct {
	Saved      int
	Duplicates []int
	Rejected   []ItemRejection
}

func (x *SaveResult) Reject(index int, reason string) {
	x.Rejected = append(x.Rejected, ItemRejection{Index: index, Reason: reason})
}

func (x *SaveResult) Duplicate(index int) {
	x.Duplicates = append(x.Duplicates, index)
}

// Checkpoint is the position of the last successfully written chunk of a job.
type Checkpoint struct {
	JobID     types.JobID `firestore:"job_id" json:"job_id"`
	RunID     types.RunID `firestore:"run_id" json:"run_id"`
	Cursor    Cursor      `firestore:"cursor" json:"cursor"`
	Completed bool        `firestore:"completed" json:"completed"`
	Read      int         `firestore:"read" json:"read"`
	Written   int         `firestore:"written" json:"written"`
	Skipped   int         `firestore:"skipped" json:"skipped"`
	UpdatedAt time.Time   `firestore:"updated_at" json:"updated_at"`
}

// SkipRecord describes an item left out of a run.
type SkipRecord struct {
	Stage  types.PipelineState
	Cursor Cursor
	Index  int
	Reason string
}

// RunReport is the operator-facing summary of one pipeline run.
type RunReport struct {
	RunID      types.RunID
	JobID      types.JobID
	Status     types.RunStatus
	State      types.PipelineState
	Reason     string
	Read       int
	Processed  int
	Skipped    int
	Written    int
	Duplicates int
	Retries    int
	Chunks     int
	LastCursor Cursor
	LastError  error
	Skips      []SkipRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

func (x *RunReport) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", string(x.RunID)),
		slog.String("job_id", string(x.JobID)),
		slog.String("status", string(x.Status)),
		slog.String("state", string(x.State)),
		slog.Int("read", x.Read),
		slog.Int("processed", x.Processed),
		slog.Int("skipped", x.Skipped),
		slog.Int("written", x.Written),
		slog.Int("duplicates", x.Duplicates),
		slog.Int("retries", x.Retries),
		slog.String("last_cursor", string(x.LastCursor)),
		slog.Duration("elapsed", x.FinishedAt.Sub(x.StartedAt)),
	}
	if x.Reason != "" {
		attrs = append(attrs, slog.String("reason", x.Reason))
	}
	return slog.GroupValue(attrs...)
}
