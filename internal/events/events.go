// Package events carries lifecycle notifications out of the report service.
// Messaging and notification collaborators consume these; delivery is
// best-effort and never rolls back the transition that produced the event.
package events

import (
	"context"
	"time"

	"regportal/pkg/domain"
)

// StatusChanged is emitted on every report transition.
type StatusChanged struct {
	ReportID   domain.ReportID `json:"reportId"`
	NewStatus  string          `json:"newStatus"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Disputed is emitted when regulator staff contest a validation-error
// outcome. The messaging collaborator opens a thread from this payload.
type Disputed struct {
	ReportID  domain.ReportID  `json:"reportId"`
	SubjectID domain.SubjectID `json:"subjectId"`
	Reason    string           `json:"reason"`
	RaisedBy  domain.UserID    `json:"raisedBy"`
}

// Publisher fans lifecycle events out to whoever listens.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged) error
	PublishDisputed(ctx context.Context, event Disputed) error
}
