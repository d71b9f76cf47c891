package types

import (
	"github.com/google/uuid"
)

type (
	RequestID       string
	RunID           string
	JobID           string
	ProcessorItemID string
	ToolConfigID    string
	KpiID           string
	Granularity     string

	GoogleProjectID string
	BQDatasetID     string
	BQTableID       string
)

func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

func NewRunID() RunID {
	return RunID(uuid.NewString())
}

func (x RunID) String() string           { return string(x) }
func (x JobID) String() string           { return string(x) }
func (x GoogleProjectID) String() string { return string(x) }
func (x BQDatasetID) String() string     { return string(x) }
func (x BQTableID) String() string       { return string(x) }

// ProviderKind identifies a source-control provider adapter variant.
type ProviderKind string

const (
	ProviderGitHub    ProviderKind = "github"
	ProviderBitbucket ProviderKind = "bitbucket"
	ProviderGit       ProviderKind = "git"
)

// ChangeType classifies how a file is affected by a diff.
type ChangeType string

const (
	ChangeAdded    ChangeType = "ADDED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeDeleted  ChangeType = "DELETED"
	ChangeRenamed  ChangeType = "RENAMED"
)

// ScmRecordKind is the kind of normalized record emitted by a SCM scan.
type ScmRecordKind string

const (
	ScmRecordCommit      ScmRecordKind = "commit"
	ScmRecordPullRequest ScmRecordKind = "pull_request"
)

// JobKind selects the processor used by a pipeline run.
type JobKind string

const (
	JobKindScmScan         JobKind = "scm_scan"
	JobKindBenchmark       JobKind = "benchmark"
	JobKindUsageStatistics JobKind = "usage_statistics"
)

// PipelineState is a state of the pipeline orchestrator state machine.
type PipelineState string

const (
	StateIdle       PipelineState = "IDLE"
	StateReading    PipelineState = "READING"
	StateProcessing PipelineState = "PROCESSING"
	StateWriting    PipelineState = "WRITING"
	StateCompleted  PipelineState = "COMPLETED"
	StateFailed     PipelineState = "FAILED"
)

// RunStatus is the terminal status reported to operators.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// SinkKind selects the persistence store a job writes to.
type SinkKind string

const (
	SinkPostgres SinkKind = "postgres"
	SinkBigQuery SinkKind = "bigquery"
)
