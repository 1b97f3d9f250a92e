package domain

// Permission is a flat capability string carried on the actor's session.
// Checks are plain set membership; subject-level access is the access
// evaluator's concern, not a permission.
type Permission string

// Report permissions. These mirror the names the portal uses everywhere an
// operation is gated, so audit entries and JWT claims stay greppable.
const (
	PermReportsView    Permission = "REPORTS_VIEW"
	PermReportsCreate  Permission = "REPORTS_CREATE"
	PermReportsDelete  Permission = "REPORTS_DELETE"
	PermReportsDispute Permission = "REPORTS_DISPUTE"
)

// Actor is the authenticated caller as resolved by the auth middleware.
// Internal staff act on any subject; external users only on subjects they
// hold an approved grant for.
type Actor struct {
	ID          UserID
	Internal    bool
	Permissions []Permission
}

// HasPermission reports whether the actor's session carries the permission.
func (a Actor) HasPermission(p Permission) bool {
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}
