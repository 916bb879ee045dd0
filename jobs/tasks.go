package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLedgerIntegrity scans every organization's posted ledger and
	// reports accounts books that do not balance.
	TaskTypeLedgerIntegrity = "ledger:integrity"
	// TaskTypeTrialBalanceWarmup pre-builds the first trial balance page
	// per organization into the report cache.
	TaskTypeTrialBalanceWarmup = "reports:tb_warmup"
)

// LedgerIntegrityPayload scopes an integrity scan. OrganizationID zero
// means all organizations.
type LedgerIntegrityPayload struct {
	OrganizationID int64 `json:"organization_id"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLedgerIntegrity, data), nil
}

// TrialBalanceWarmupPayload scopes a cache warm-up run.
type TrialBalanceWarmupPayload struct {
	OrganizationID int64 `json:"organization_id"`
}

// NewTrialBalanceWarmupTask constructs an Asynq task.
func NewTrialBalanceWarmupTask(payload TrialBalanceWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTrialBalanceWarmup, data), nil
}
