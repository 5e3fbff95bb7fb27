package entity

import "time"

// HistoryAction identifies the kind of transition a history record captures
type HistoryAction string

const (
	HistorySubmitted HistoryAction = "Submitted"
	HistoryApproved  HistoryAction = "Approved"
	HistoryRejected  HistoryAction = "Rejected"
	HistoryCompleted HistoryAction = "Completed"
)

// HistoryRecord is an immutable audit entry for one action taken on an
// instance. Records are append-only and ordered by timestamp, ties broken
// by insertion sequence (id).
type HistoryRecord struct {
	ID           int64         `json:"id"`
	InstanceID   int64         `json:"instance_id"`
	StepID       *int64        `json:"step_id,omitempty"`
	Action       HistoryAction `json:"action"`
	ActingUserID string        `json:"acting_user_id"`
	Comment      string        `json:"comment,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
