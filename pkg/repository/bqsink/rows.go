package bqsink

import (
	"sort"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
)

// Rows are declared with the timestamp type as a parameter. The schema is
// inferred from the time.Time variant and rows are written with Unix
// microseconds, which is what the storage write API expects for TIMESTAMP.

func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

type fileRow struct {
	Path         string `json:"path" bigquery:"path"`
	OldPath      string `json:"old_path" bigquery:"old_path"`
	LinesAdded   int64  `json:"lines_added" bigquery:"lines_added"`
	LinesDeleted int64  `json:"lines_deleted" bigquery:"lines_deleted"`
	ChangeType   string `json:"change_type" bigquery:"change_type"`
	Binary       bool   `json:"binary" bigquery:"binary"`
}

type scmRow[TS any] struct {
	RecordKey       string    `json:"record_key" bigquery:"record_key"`
	Kind            string    `json:"kind" bigquery:"kind"`
	Provider        string    `json:"provider" bigquery:"provider"`
	Repository      string    `json:"repository" bigquery:"repository"`
	RepositoryID    string    `json:"repository_id" bigquery:"repository_id"`
	ProcessorItemID string    `json:"processor_item_id" bigquery:"processor_item_id"`
	SHA             string    `json:"sha" bigquery:"sha"`
	Branch          string    `json:"branch" bigquery:"branch"`
	TargetBranch    string    `json:"target_branch" bigquery:"target_branch"`
	Number          int64     `json:"number" bigquery:"number"`
	Title           string    `json:"title" bigquery:"title"`
	State           string    `json:"state" bigquery:"state"`
	Author          string    `json:"author" bigquery:"author"`
	OccurredAt      TS        `json:"occurred_at" bigquery:"occurred_at"`
	MergedAt        TS        `json:"merged_at,omitempty" bigquery:"merged_at"`
	TotalAdditions  int64     `json:"total_additions" bigquery:"total_additions"`
	TotalDeletions  int64     `json:"total_deletions" bigquery:"total_deletions"`
	MergeCommit     bool      `json:"merge_commit" bigquery:"merge_commit"`
	SkippedSections int64     `json:"skipped_sections" bigquery:"skipped_sections"`
	Files           []fileRow `json:"files" bigquery:"files"`
}

func toScmRow(rec *model.ScmRecord) (scmRow[int64], error) {
	row := scmRow[int64]{
		RecordKey:       rec.Key(),
		Kind:            string(rec.Kind),
		Provider:        string(rec.Provider),
		Repository:      rec.Repository,
		RepositoryID:    rec.RepositoryID,
		ProcessorItemID: string(rec.ProcessorItemID),
	}

	var stats model.PullRequestStats
	switch rec.Kind {
	case types.ScmRecordCommit:
		c := rec.Commit
		row.SHA = string(c.SHA)
		row.Branch = string(c.Branch)
		row.Author = c.Author
		row.OccurredAt = micros(c.CommittedAt)
		stats = c.Stats
	case types.ScmRecordPullRequest:
		pr := rec.PullRequest
		row.Number = int64(pr.Number)
		row.Title = pr.Title
		row.State = pr.State
		row.Author = pr.Author
		row.Branch = string(pr.SourceBranch)
		row.TargetBranch = string(pr.TargetBranch)
		row.OccurredAt = micros(pr.CreatedAt)
		if pr.MergedAt != nil {
			row.MergedAt = micros(*pr.MergedAt)
		}
		stats = pr.Stats
	}

	row.TotalAdditions = int64(stats.TotalAdditions)
	row.TotalDeletions = int64(stats.TotalDeletions)
	row.MergeCommit = stats.MergeCommit
	row.SkippedSections = int64(stats.SkippedSections)
	row.Files = make([]fileRow, 0, len(stats.FilesChanged))
	for _, f := range stats.FilesChanged {
		row.Files = append(row.Files, fileRow{
			Path:         f.Path,
			OldPath:      f.OldPath,
			LinesAdded:   int64(f.LinesAdded),
			LinesDeleted: int64(f.LinesDeleted),
			ChangeType:   string(f.ChangeType),
			Binary:       f.Binary,
		})
	}
	return row, nil
}

// NewScmRecordSink writes normalized commits and pull requests.
func NewScmRecordSink(bq interfaces.BigQuery) *Sink[*model.ScmRecord, scmRow[int64]] {
	return newSink(bq, scmRow[time.Time]{}, toScmRow)
}

type percentileRow struct {
	Label string  `json:"label" bigquery:"label"`
	Value float64 `json:"value" bigquery:"value"`
}

type benchmarkRow[TS any] struct {
	KpiID       string          `json:"kpi_id" bigquery:"kpi_id"`
	Granularity string          `json:"granularity" bigquery:"granularity"`
	SampleSize  int64           `json:"sample_size" bigquery:"sample_size"`
	Percentiles []percentileRow `json:"percentiles" bigquery:"percentiles"`
	ComputedAt  TS              `json:"computed_at" bigquery:"computed_at"`
}

func toBenchmarkRow(v *model.KpiBenchmarkValues) (benchmarkRow[int64], error) {
	row := benchmarkRow[int64]{
		KpiID:       string(v.KpiID),
		Granularity: string(v.Granularity),
		SampleSize:  int64(v.SampleSize),
		ComputedAt:  micros(v.ComputedAt),
	}
	for label, value := range v.PercentileValues {
		row.Percentiles = append(row.Percentiles, percentileRow{Label: label, Value: value})
	}
	sort.Slice(row.Percentiles, func(i, j int) bool {
		return row.Percentiles[i].Label < row.Percentiles[j].Label
	})
	return row, nil
}

// NewBenchmarkSink writes KPI percentile benchmarks. The percentile map is
// stored as a repeated label/value record.
func NewBenchmarkSink(bq interfaces.BigQuery) *Sink[*model.KpiBenchmarkValues, benchmarkRow[int64]] {
	return newSink(bq, benchmarkRow[time.Time]{}, toBenchmarkRow)
}

type usageRow[TS any] struct {
	Tool                string  `json:"tool" bigquery:"tool"`
	Organization        string  `json:"organization" bigquery:"organization"`
	Date                string  `json:"date" bigquery:"date"`
	TotalSuggestions    int64   `json:"total_suggestions" bigquery:"total_suggestions"`
	AcceptedSuggestions int64   `json:"accepted_suggestions" bigquery:"accepted_suggestions"`
	AcceptanceRate      float64 `json:"acceptance_rate" bigquery:"acceptance_rate"`
	LinesSuggested      int64   `json:"lines_suggested" bigquery:"lines_suggested"`
	LinesAccepted       int64   `json:"lines_accepted" bigquery:"lines_accepted"`
	ActiveUsers         int64   `json:"active_users" bigquery:"active_users"`
	EngagedUsers        int64   `json:"engaged_users" bigquery:"engaged_users"`
	IngestedAt          TS      `json:"ingested_at" bigquery:"ingested_at"`
}

func toUsageRow(v *model.AIUsageStatistics) (usageRow[int64], error) {
	return usageRow[int64]{
		Tool:                v.Tool,
		Organization:        v.Organization,
		Date:                v.Date.Format(time.DateOnly),
		TotalSuggestions:    int64(v.TotalSuggestions),
		AcceptedSuggestions: int64(v.AcceptedSuggestions),
		AcceptanceRate:      v.AcceptanceRate,
		LinesSuggested:      int64(v.LinesSuggested),
		LinesAccepted:       int64(v.LinesAccepted),
		ActiveUsers:         int64(v.ActiveUsers),
		EngagedUsers:        int64(v.EngagedUsers),
		IngestedAt:          micros(v.IngestedAt),
	}, nil
}

// NewUsageStatisticsSink writes AI usage statistics.
func NewUsageStatisticsSink(bq interfaces.BigQuery) *Sink[*model.AIUsageStatistics, usageRow[int64]] {
	return newSink(bq, usageRow[time.Time]{}, toUsageRow)
}

var (
	_ interfaces.PersistenceStore[*model.ScmRecord]          = (*Sink[*model.ScmRecord, scmRow[int64]])(nil)
	_ interfaces.PersistenceStore[*model.KpiBenchmarkValues] = (*Sink[*model.KpiBenchmarkValues, benchmarkRow[int64]])(nil)
	_ interfaces.PersistenceStore[*model.AIUsageStatistics]  = (*Sink[*model.AIUsageStatistics, usageRow[int64]])(nil)
)
