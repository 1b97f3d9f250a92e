package testutil

import (
	"net/http"

	"regportal/internal/platform/middleware"
	"regportal/pkg/domain"
)

// InternalActor builds a regulator-staff actor holding the given permissions.
func InternalActor(perms ...domain.Permission) domain.Actor {
	return domain.Actor{
		ID:          domain.NewUserID(),
		Internal:    true,
		Permissions: perms,
	}
}

// ExternalActor builds a supervised-entity actor holding the given permissions.
func ExternalActor(perms ...domain.Permission) domain.Actor {
	return domain.Actor{
		ID:          domain.NewUserID(),
		Internal:    false,
		Permissions: perms,
	}
}

// WithActor seeds the request context with an authenticated actor.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actor domain.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}
