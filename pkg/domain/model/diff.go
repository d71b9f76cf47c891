package model

import "github.com/m-mizutani/devlens/pkg/domain/types"

// FileChange is the change statistics of one file in one diff.
type FileChange struct {
	Path         string           `json:"path" bigquery:"path"`
	OldPath      string           `json:"old_path,omitempty" bigquery:"old_path"`
	LinesAdded   int              `json:"lines_added" bigquery:"lines_added"`
	LinesDeleted int              `json:"lines_deleted" bigquery:"lines_deleted"`
	ChangeType   types.ChangeType `json:"change_type" bigquery:"change_type"`
	Binary       bool             `json:"binary,omitempty" bigquery:"binary"`
}

// DiffResult is the per-file breakdown of a diff text. SkippedSections counts
// file sections that were truncated or malformed and left out of Files.
type DiffResult struct {
	Files           []FileChange
	SkippedSections int
}

// PullRequestStats is derived from a single diff text. TotalAdditions and
// TotalDeletions always equal the sums over FilesChanged.
type PullRequestStats struct {
	FilesChanged    []FileChange `json:"files_changed" bigquery:"files_changed"`
	TotalAdditions  int          `json:"total_additions" bigquery:"total_additions"`
	TotalDeletions  int          `json:"total_deletions" bigquery:"total_deletions"`
	MergeCommit     bool         `json:"merge_commit" bigquery:"merge_commit"`
	SkippedSections int          `json:"skipped_sections" bigquery:"skipped_sections"`
}

func NewPullRequestStats(result *DiffResult, merge bool) *PullRequestStats {
	stats := &PullRequestStats{
		FilesChanged:    result.Files,
		MergeCommit:     merge,
		SkippedSections: result.SkippedSections,
	}
	if stats.FilesChanged == nil {
		stats.FilesChanged = []FileChange{}
	}
	for _, f := range result.Files {
		stats.TotalAdditions += f.LinesAdded
		stats.TotalDeletions += f.LinesDeleted
	}
	return stats
}
