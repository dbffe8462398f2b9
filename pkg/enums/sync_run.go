package enums

import "fmt"

// SyncRunStatus maps to the sync_run_status_enum enum in Postgres.
type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "running"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusPartial SyncRunStatus = "partial"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

var validSyncRunStatuses = []SyncRunStatus{
	SyncRunStatusRunning,
	SyncRunStatusSuccess,
	SyncRunStatusPartial,
	SyncRunStatusFailed,
}

// IsValid reports whether the value matches the canonical run status enum.
func (s SyncRunStatus) IsValid() bool {
	for _, candidate := range validSyncRunStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run has finished, regardless of outcome.
func (s SyncRunStatus) IsTerminal() bool {
	return s == SyncRunStatusSuccess || s == SyncRunStatusPartial || s == SyncRunStatusFailed
}

// SyncTrigger records how a sync run was started.
type SyncTrigger string

const (
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerManual    SyncTrigger = "manual"
)

// IsValid reports whether the value matches the canonical trigger enum.
func (t SyncTrigger) IsValid() bool {
	return t == SyncTriggerScheduled || t == SyncTriggerManual
}

// ParseSyncRunStatus converts raw input into SyncRunStatus.
func ParseSyncRunStatus(value string) (SyncRunStatus, error) {
	for _, candidate := range validSyncRunStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync run status %q", value)
}
