package processor

import (
	"context"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UsageStatistics converts an external AI usage record into statistics.
// User-level detail is dropped.
type UsageStatistics struct{}

var _ interfaces.ItemProcessor[*model.AIUsageRecord, *model.AIUsageStatistics] = (*UsageStatistics)(nil)

func NewUsageStatistics() *UsageStatistics {
	return &UsageStatistics{}
}

func (x *UsageStatistics) Process(ctx context.Context, record *model.AIUsageRecord) ([]*model.AIUsageStatistics, error) {
	date, err := time.Parse(time.DateOnly, record.Date)
	if err != nil {
		return nil, goerr.Wrap(types.ErrValidation, "invalid usage date",
			goerr.V("tool", record.Tool),
			goerr.V("date", record.Date),
		)
	}

	counts := []int{
		record.TotalSuggestions, record.AcceptedSuggestions,
		record.LinesSuggested, record.LinesAccepted,
		record.ActiveUsers, record.EngagedUsers,
	}
	for _, c := range counts {
		if c < 0 {
			return nil, goerr.Wrap(types.ErrValidation, "negative usage count", goerr.V("tool", record.Tool), goerr.V("date", record.Date))
		}
	}
	if record.AcceptedSuggestions > record.TotalSuggestions {
		return nil, goerr.Wrap(types.ErrValidation, "more accepted than suggested",
			goerr.V("tool", record.Tool),
			goerr.V("date", record.Date),
			goerr.V("accepted", record.AcceptedSuggestions),
			goerr.V("total", record.TotalSuggestions),
		)
	}

	stats := &model.AIUsageStatistics{
		Tool:                record.Tool,
		Organization:        record.Organization,
		Date:                date,
		TotalSuggestions:    record.TotalSuggestions,
		AcceptedSuggestions: record.AcceptedSuggestions,
		LinesSuggested:      record.LinesSuggested,
		LinesAccepted:       record.LinesAccepted,
		ActiveUsers:         record.ActiveUsers,
		EngagedUsers:        record.EngagedUsers,
		IngestedAt:          logging.CtxTime(ctx),
	}
	if record.TotalSuggestions > 0 {
		stats.AcceptanceRate = float64(record.AcceptedSuggestions) / float64(record.TotalSuggestions)
	}

	if err := stats.Validate(); err != nil {
		return nil, err
	}
	return []*model.AIUsageStatistics{stats}, nil
}
