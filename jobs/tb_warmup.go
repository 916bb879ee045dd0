package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/openbooks-app/openbooks/internal/org"
	"github.com/openbooks-app/openbooks/internal/reports"
)

// NewTrialBalanceWarmupHandler builds the handler for
// TaskTypeTrialBalanceWarmup. It renders the first trial balance page for
// each organization so the next dashboard hit is a cache read.
func NewTrialBalanceWarmupHandler(orgs org.Repository, svc *reports.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TrialBalanceWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		var targets []int64
		if payload.OrganizationID != 0 {
			targets = []int64{payload.OrganizationID}
		} else {
			all, err := orgs.List(ctx)
			if err != nil {
				return err
			}
			for _, o := range all {
				targets = append(targets, o.ID)
			}
		}

		for _, orgID := range targets {
			report, err := svc.TrialBalance(ctx, orgID, reports.TrialBalanceQuery{})
			if err != nil {
				logger.Warn("trial balance warmup failed", slog.Int64("org_id", orgID), slog.Any("error", err))
				continue
			}
			logger.Info("trial balance warmed",
				slog.Int64("org_id", orgID), slog.Int("rows", len(report.Rows)))
		}
		return nil
	}
}
