package model

import (
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// AIUsageRecord is one page entry of an external AI-tool usage export.
type AIUsageRecord struct {
	Tool                string           `json:"tool"`
	Organization        string           `json:"organization"`
	Date                string           `json:"date"`
	TotalSuggestions    int              `json:"total_suggestions"`
	AcceptedSuggestions int              `json:"accepted_suggestions"`
	LinesSuggested      int              `json:"lines_suggested"`
	LinesAccepted       int              `json:"lines_accepted"`
	ActiveUsers         int              `json:"active_users"`
	EngagedUsers        int              `json:"engaged_users"`
	Users               []AIUsageUserRow `json:"users,omitempty"`
}

// AIUsageUserRow is user-level detail, never copied into statistics.
type AIUsageUserRow struct {
	Login               string `json:"login"`
	TotalSuggestions    int    `json:"total_suggestions"`
	AcceptedSuggestions int    `json:"accepted_suggestions"`
}

// AIUsageStatistics is the aggregated internal shape of an AI usage record.
type AIUsageStatistics struct {
	Tool                string    `json:"tool" bigquery:"tool"`
	Organization        string    `json:"organization" bigquery:"organization"`
	Date                time.Time `json:"date" bigquery:"date"`
	TotalSuggestions    int       `json:"total_suggestions" bigquery:"total_suggestions"`
	AcceptedSuggestions int       `json:"accepted_suggestions" bigquery:"accepted_suggestions"`
	AcceptanceRate      float64   `json:"acceptance_rate" bigquery:"acceptance_rate"`
	LinesSuggested      int       `json:"lines_suggested" bigquery:"lines_suggested"`
	LinesAccepted       int       `json:"lines_accepted" bigquery:"lines_accepted"`
	ActiveUsers         int       `json:"active_users" bigquery:"active_users"`
	EngagedUsers        int       `json:"engaged_users" bigquery:"engaged_users"`
	IngestedAt          time.Time `json:"ingested_at" bigquery:"ingested_at"`
}

func (x *AIUsageStatistics) Validate() error {
	if x.Tool == "" || x.Organization == "" {
		return goerr.Wrap(types.ErrValidation, "tool or organization is empty",
			goerr.V("tool", x.Tool),
			goerr.V("organization", x.Organization),
		)
	}
	if x.Date.IsZero() {
		return goerr.Wrap(types.ErrValidation, "date is empty", goerr.V("tool", x.Tool))
	}
	return nil
}

func (x *AIUsageStatistics) Key() string {
	return x.Tool + ":" + x.Organization + ":" + x.Date.Format(time.DateOnly)
}
