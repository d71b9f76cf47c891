package model

import (
	"strconv"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Commit is a commit as returned by a provider adapter, with its raw diff.
type Commit struct {
	SHA         types.CommitSHA
	Author      string
	AuthorEmail string
	Message     string
	CommittedAt time.Time
	ParentCount int
	Diff        string
}

func (x *Commit) IsMerge() bool {
	return x.ParentCount > 1
}

// PullRequest is a pull request as returned by a provider adapter, with its raw diff.
type PullRequest struct {
	Number       int
	Title        string
	State        string
	Author       string
	SourceBranch types.BranchName
	TargetBranch types.BranchName
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MergedAt     *time.Time
	Diff         string
}

type CommitRecord struct {
	SHA         types.CommitSHA  `json:"sha" bigquery:"sha"`
	Branch      types.BranchName `json:"branch" bigquery:"branch"`
	Author      string           `json:"author" bigquery:"author"`
	AuthorEmail string           `json:"author_email" bigquery:"author_email" masq:"secret"`
	Message     string           `json:"message" bigquery:"message"`
	CommittedAt time.Time        `json:"committed_at" bigquery:"committed_at"`
	Stats       PullRequestStats `json:"stats" bigquery:"stats"`
}

type PullRequestRecord struct {
	Number       int              `json:"number" bigquery:"number"`
	Title        string           `json:"title" bigquery:"title"`
	State        string           `json:"state" bigquery:"state"`
	Author       string           `json:"author" bigquery:"author"`
	SourceBranch types.BranchName `json:"source_branch" bigquery:"source_branch"`
	TargetBranch types.BranchName `json:"target_branch" bigquery:"target_branch"`
	CreatedAt    time.Time        `json:"created_at" bigquery:"created_at"`
	MergedAt     *time.Time       `json:"merged_at,omitempty" bigquery:"merged_at"`
	Stats        PullRequestStats `json:"stats" bigquery:"stats"`
}

// ScmRecord is a normalized commit or pull request emitted by a SCM scan.
// Exactly one of Commit and PullRequest is set, matching Kind.
type ScmRecord struct {
	Kind            types.ScmRecordKind   `json:"kind"`
	ProcessorItemID types.ProcessorItemID `json:"processor_item_id"`
	Provider        types.ProviderKind    `json:"provider"`
	RepositoryID    string                `json:"repository_id"`
	Repository      string                `json:"repository"`
	Commit          *CommitRecord         `json:"commit,omitempty"`
	PullRequest     *PullRequestRecord    `json:"pull_request,omitempty"`
}

func (x *ScmRecord) Validate() error {
	if x.Repository == "" {
		return goerr.Wrap(types.ErrValidation, "repository is empty")
	}
	switch x.Kind {
	case types.ScmRecordCommit:
		if x.Commit == nil || x.Commit.SHA == "" {
			return goerr.Wrap(types.ErrValidation, "commit record without SHA", goerr.V("repository", x.Repository))
		}
	case types.ScmRecordPullRequest:
		if x.PullRequest == nil || x.PullRequest.Number <= 0 {
			return goerr.Wrap(types.ErrValidation, "pull request record without number", goerr.V("repository", x.Repository))
		}
	default:
		return goerr.Wrap(types.ErrValidation, "unknown record kind", goerr.V("kind", x.Kind))
	}
	return nil
}

// Key identifies the record for de-duplication.
func (x *ScmRecord) Key() string {
	switch x.Kind {
	case types.ScmRecordCommit:
		if x.Commit != nil {
			return string(x.Provider) + ":" + x.Repository + ":commit:" + string(x.Commit.SHA)
		}
	case types.ScmRecordPullRequest:
		if x.PullRequest != nil {
			return string(x.Provider) + ":" + x.Repository + ":pr:" + strconv.Itoa(x.PullRequest.Number)
		}
	}
	return ""
}

// Revision changes whenever a stored record must be replaced by a newer read
// of the same key. Commits are immutable and have no revision; a pull request
// changes with its state, title and diff.
func (x *ScmRecord) Revision() string {
	if x.Kind != types.ScmRecordPullRequest || x.PullRequest == nil {
		return ""
	}
	pr := x.PullRequest
	merged := ""
	if pr.MergedAt != nil {
		merged = pr.MergedAt.UTC().Format(time.RFC3339)
	}
	return pr.State + "|" + merged + "|" + pr.Title + "|" +
		strconv.Itoa(pr.Stats.TotalAdditions) + "|" + strconv.Itoa(pr.Stats.TotalDeletions)
}
