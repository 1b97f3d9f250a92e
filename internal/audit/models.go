package audit

import (
	"time"

	"regportal/pkg/domain"
)

// Action names what happened, in the portal's greppable SCREAMING_SNAKE form.
type Action string

const (
	ActionReportCreate  Action = "REPORT_CREATE"
	ActionReportSubmit  Action = "REPORT_SUBMIT"
	ActionReportOutcome Action = "REPORT_VALIDATION_OUTCOME"
	ActionReportTimeout Action = "REPORT_TIMEOUT"
	ActionReportDispute Action = "REPORT_DISPUTE"
	ActionReportDelete  Action = "REPORT_DELETE"
)

// Event is one audit record: what happened, to which entity, and the status
// either side of the change. Keep it transport-agnostic so stores and sinks
// can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   domain.UserID
	Action    Action
	Entity    string
	EntityID  string
	Before    string
	After     string
	RequestID string
}
