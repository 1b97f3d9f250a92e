package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
)

type stubValidator struct {
	actor domain.Actor
	err   error
	got   string
}

func (v *stubValidator) ValidateToken(token string) (domain.Actor, error) {
	v.got = token
	return v.actor, v.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	actor := domain.Actor{ID: domain.NewUserID(), Permissions: []domain.Permission{domain.PermReportsView}}

	newHandler := func(validator *stubValidator) (http.Handler, *domain.Actor) {
		var seen domain.Actor
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetActor(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		return RequireAuth(validator, testLogger())(inner), &seen
	}

	t.Run("valid token resolves the actor", func(t *testing.T) {
		validator := &stubValidator{actor: actor}
		handler, seen := newHandler(validator)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.Header.Set("Authorization", "Bearer token-abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "token-abc", validator.got)
		assert.Equal(t, actor.ID, seen.ID)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		handler, _ := newHandler(&stubValidator{})
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		validator := &stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		handler, _ := newHandler(validator)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequirePermission(domain.PermReportsDelete)(inner)

	t.Run("actor with the permission passes", func(t *testing.T) {
		actor := domain.Actor{ID: domain.NewUserID(), Permissions: []domain.Permission{domain.PermReportsDelete}}
		req := httptest.NewRequest(http.MethodDelete, "/reports/x", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("actor without the permission is denied", func(t *testing.T) {
		actor := domain.Actor{ID: domain.NewUserID(), Permissions: []domain.Permission{domain.PermReportsView}}
		req := httptest.NewRequest(http.MethodDelete, "/reports/x", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing actor fails closed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/reports/x", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestRequestID(t *testing.T) {
	var captured string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestID(inner)

	t.Run("honors a caller-supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "caller-id-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "caller-id-1", captured)
		assert.Equal(t, "caller-id-1", rr.Header().Get("X-Request-ID"))
	})

	t.Run("generates one otherwise", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rr.Header().Get("X-Request-ID"))
	})
}
