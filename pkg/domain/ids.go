// Package domain holds the identifier and actor types shared across the
// portal. IDs are distinct types over uuid.UUID so a report id can never be
// passed where a subject id is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "regportal/pkg/domain-errors"
)

// UserID identifies a portal user, internal or external.
type UserID uuid.UUID

// SubjectID identifies a supervised entity (bank, fund, etc.).
type SubjectID uuid.UUID

// ReportID identifies one regulatory submission.
type ReportID uuid.UUID

// AttemptID identifies one validation attempt against a report.
type AttemptID uuid.UUID

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string  { return uuid.UUID(id).String() }
func (id AttemptID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// The ID types are arrays underneath, so they do not inherit uuid.UUID's
// TextMarshaler. Queue jobs and event payloads carry these in JSON; without
// these methods they would serialize as raw byte arrays.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id SubjectID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReportID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id AttemptID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *SubjectID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SubjectID(u)
	return nil
}

func (id *ReportID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ReportID(u)
	return nil
}

func (id *AttemptID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AttemptID(u)
	return nil
}

// NewUserID generates a fresh user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSubjectID generates a fresh subject id.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewReportID generates a fresh report id.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// NewAttemptID generates a fresh attempt id.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
// Errors: CodeInvalidInput when the value is empty or not a UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseSubjectID constructs a SubjectID from external input.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s, "subject id")
	return SubjectID(u), err
}

// ParseReportID constructs a ReportID from external input.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report id")
	return ReportID(u), err
}

// ParseAttemptID constructs an AttemptID from external input.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID(s, "attempt id")
	return AttemptID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must be a valid UUID")
	}
	return u, nil
}
