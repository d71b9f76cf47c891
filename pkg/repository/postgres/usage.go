package postgres

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
)

const insertUsageStatistics = `INSERT INTO ai_usage_statistics (
	tool, organization, date, total_suggestions, accepted_suggestions, acceptance_rate,
	lines_suggested, lines_accepted, active_users, engaged_users, ingested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (tool, organization, date) DO NOTHING`

type usageStatisticsStore struct {
	db *Client
}

func (x *Client) UsageStatistics() interfaces.PersistenceStore[*model.AIUsageStatistics] {
	return &usageStatisticsStore{db: x}
}

func (x *usageStatisticsStore) SaveAll(ctx context.Context, items []*model.AIUsageStatistics) (*model.SaveResult, error) {
	return saveAll(ctx, x.db.db, inserter[*model.AIUsageStatistics]{
		table: "ai_usage_statistics",
		query: insertUsageStatistics,
		args: func(v *model.AIUsageStatistics) ([]any, error) {
			return []any{
				v.Tool, v.Organization, v.Date,
				v.TotalSuggestions, v.AcceptedSuggestions, v.AcceptanceRate,
				v.LinesSuggested, v.LinesAccepted, v.ActiveUsers, v.EngagedUsers,
				v.IngestedAt,
			}, nil
		},
	}, items)
}
