package service

import "time"

// Resolution outcomes reported to SyncMetrics.
const (
	ResolutionFound  = "found"
	ResolutionAbsent = "absent"
	ResolutionFailed = "failed"
	ResolutionStale  = "stale"
)

// SyncMetrics receives counters from the session machine and profile coordinator.
type SyncMetrics interface {
	RecordResolution(outcome string, latency time.Duration)
	RecordDroppedEvent(eventType string)
	RecordSafetyTimer(timer string)
	RecordProfileSave(outcome string)
	RecordConflictRecovery(recovered bool)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordResolution(string, time.Duration) {}
func (NopMetrics) RecordDroppedEvent(string)              {}
func (NopMetrics) RecordSafetyTimer(string)               {}
func (NopMetrics) RecordProfileSave(string)               {}
func (NopMetrics) RecordConflictRecovery(bool)            {}
