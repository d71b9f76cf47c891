package model

import (
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ProcessorItem is one configured scan target. It is created when a tool is
// configured and never mutated by the pipeline.
type ProcessorItem struct {
	ID           types.ProcessorItemID `firestore:"id" json:"id"`
	ToolConfigID types.ToolConfigID    `firestore:"tool_config_id" json:"tool_config_id"`
	IsActive     bool                  `firestore:"is_active" json:"is_active"`
}

// ToolConfig is the provider configuration a ProcessorItem points to.
type ToolConfig struct {
	ID             types.ToolConfigID `firestore:"id" json:"id"`
	Provider       types.ProviderKind `firestore:"provider" json:"provider"`
	Owner          string             `firestore:"owner" json:"owner"`
	CredentialsRef string             `firestore:"credentials_ref" json:"credentials_ref" masq:"secret"`
	Include        []string           `firestore:"include" json:"include,omitempty"`
	Exclude        []string           `firestore:"exclude" json:"exclude,omitempty"`
	SkipArchived   bool               `firestore:"skip_archived" json:"skip_archived"`
	LookbackDays   int                `firestore:"lookback_days" json:"lookback_days"`
}

// ScanRequest builds the scan input of this configuration relative to now.
func (x *ToolConfig) ScanRequest(now time.Time) (*ScanRequest, error) {
	if x.LookbackDays < 0 {
		return nil, goerr.Wrap(types.ErrConfiguration, "lookback days is negative", goerr.V("tool_config_id", x.ID))
	}

	req := &ScanRequest{
		Provider:       x.Provider,
		Owner:          x.Owner,
		CredentialsRef: x.CredentialsRef,
		Filter: RepositoryFilter{
			Include:      x.Include,
			Exclude:      x.Exclude,
			SkipArchived: x.SkipArchived,
		},
	}
	if x.LookbackDays > 0 {
		req.Since = now.AddDate(0, 0, -x.LookbackDays)
	}

	if err := req.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid tool config", goerr.V("tool_config_id", x.ID))
	}
	return req, nil
}
