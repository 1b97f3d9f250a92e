// Package access decides whether an actor may act on a subject's reports.
// Internal staff are unconditional; external users need an APPROVED grant
// binding them to the subject. The evaluator is read-only and safe for
// concurrent use.
package access

import (
	"context"

	"regportal/pkg/domain"
)

// GrantStatus is the approval state of a user-subject association. Only
// APPROVED grants authorize; PENDING and REJECTED are tracked by the access
// request workflow, which is outside this package's concern.
type GrantStatus string

const (
	GrantPending  GrantStatus = "PENDING"
	GrantApproved GrantStatus = "APPROVED"
	GrantRejected GrantStatus = "REJECTED"
)

// Grant maps a user to a subject with an approval status.
type Grant struct {
	UserID    domain.UserID
	SubjectID domain.SubjectID
	Status    GrantStatus
}

// GrantStore looks up grants. Consumed read-only by the evaluator.
type GrantStore interface {
	HasApprovedGrant(ctx context.Context, userID domain.UserID, subjectID domain.SubjectID) (bool, error)
	ListApprovedSubjects(ctx context.Context, userID domain.UserID) ([]domain.SubjectID, error)
}

// Evaluator is the authorization seam the lifecycle service depends on, so
// guards stay unit-testable without a real session or database.
type Evaluator interface {
	// CanActOn reports whether the actor may operate on the subject's reports.
	CanActOn(ctx context.Context, actor domain.Actor, subjectID domain.SubjectID) (bool, error)
	// VisibleSubjects returns the subjects whose reports the actor may list.
	// Nil means unrestricted (internal staff).
	VisibleSubjects(ctx context.Context, actor domain.Actor) ([]domain.SubjectID, error)
}

// GrantEvaluator implements Evaluator over a GrantStore.
type GrantEvaluator struct {
	grants GrantStore
}

func NewEvaluator(grants GrantStore) *GrantEvaluator {
	return &GrantEvaluator{grants: grants}
}

func (e *GrantEvaluator) CanActOn(ctx context.Context, actor domain.Actor, subjectID domain.SubjectID) (bool, error) {
	if actor.Internal {
		return true, nil
	}
	return e.grants.HasApprovedGrant(ctx, actor.ID, subjectID)
}

func (e *GrantEvaluator) VisibleSubjects(ctx context.Context, actor domain.Actor) ([]domain.SubjectID, error) {
	if actor.Internal {
		return nil, nil
	}
	subjects, err := e.grants.ListApprovedSubjects(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if subjects == nil {
		// A grantless external user sees nothing, not everything.
		subjects = []domain.SubjectID{}
	}
	return subjects, nil
}
