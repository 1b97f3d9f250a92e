// Package handler exposes the report lifecycle over HTTP. It stays thin:
// decode, validate shape, call the service, translate the domain error.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"regportal/internal/platform/middleware"
	"regportal/internal/report/models"
	"regportal/internal/report/service"
	"regportal/internal/report/store"
	"regportal/internal/storage"
	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/platform/httputil"
)

// Service defines the interface for report lifecycle operations.
type Service interface {
	CreateDraft(ctx context.Context, actor domain.Actor, in service.CreateDraftInput) (*models.Report, storage.UploadTarget, error)
	Submit(ctx context.Context, actor domain.Actor, reportID domain.ReportID) (domain.AttemptID, error)
	Dispute(ctx context.Context, actor domain.Actor, reportID domain.ReportID, reason string) error
	Delete(ctx context.Context, actor domain.Actor, reportID domain.ReportID) error
	Get(ctx context.Context, actor domain.Actor, reportID domain.ReportID) (*models.Report, []*models.ValidationAttempt, error)
	List(ctx context.Context, actor domain.Actor, filter store.ListFilter) ([]*models.Report, error)
}

// Handler wires report endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a report handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts report endpoints on the router. Callers wrap the router in
// RequireAuth; per-route permissions are applied here.
func (h *Handler) Register(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(domain.PermReportsView)).Get("/", h.HandleList)
		r.With(middleware.RequirePermission(domain.PermReportsCreate)).Post("/", h.HandleCreate)
		r.Route("/{reportID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(domain.PermReportsView)).Get("/", h.HandleGet)
			r.With(middleware.RequirePermission(domain.PermReportsDelete)).Delete("/", h.HandleDelete)
			r.With(middleware.RequirePermission(domain.PermReportsCreate)).Post("/submit", h.HandleSubmit)
			r.With(middleware.RequirePermission(domain.PermReportsDispute)).Post("/dispute", h.HandleDispute)
		})
	})
}

// HandleCreate handles POST /reports requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateReportRequest](w, r)
	if !ok {
		return
	}

	report, target, err := h.service.CreateDraft(ctx, actor, req.ToInput())
	if err != nil {
		h.logError(ctx, "report creation failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report draft created",
		"request_id", middleware.GetRequestID(ctx),
		"report_id", report.ID.String(),
		"subject_id", report.SubjectID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateReportResponse{
		Report: FromReport(report),
		Upload: FromUploadTarget(target),
	})
}

// HandleSubmit handles POST /reports/{reportID}/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)
	start := time.Now()

	reportID, err := reportIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attemptID, err := h.service.Submit(ctx, actor, reportID)
	if err != nil {
		h.logError(ctx, "report submission failed", err, "report_id", reportID.String())
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report submitted",
		"request_id", middleware.GetRequestID(ctx),
		"report_id", reportID.String(),
		"attempt_id", attemptID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, SubmitResponse{
		AttemptID: attemptID.String(),
		Status:    string(models.StatusProcessing),
	})
}

// HandleDispute handles POST /reports/{reportID}/dispute requests.
func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	reportID, err := reportIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DisputeRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.Dispute(ctx, actor, reportID, req.Reason); err != nil {
		h.logError(ctx, "report dispute failed", err, "report_id", reportID.String())
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report disputed",
		"request_id", middleware.GetRequestID(ctx),
		"report_id", reportID.String(),
		"actor_id", actor.ID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /reports/{reportID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	reportID, err := reportIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, actor, reportID); err != nil {
		h.logError(ctx, "report deletion failed", err, "report_id", reportID.String())
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGet handles GET /reports/{reportID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	reportID, err := reportIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, attempts, err := h.service.Get(ctx, actor, reportID)
	if err != nil {
		h.logError(ctx, "report fetch failed", err, "report_id", reportID.String())
		httputil.WriteError(w, err)
		return
	}

	resp := GetReportResponse{
		Report:   FromReport(report),
		Attempts: make([]AttemptResponse, 0, len(attempts)),
	}
	for _, attempt := range attempts {
		resp.Attempts = append(resp.Attempts, FromAttempt(attempt))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleList handles GET /reports requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reports, err := h.service.List(ctx, actor, filter)
	if err != nil {
		h.logError(ctx, "report listing failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := ListReportsResponse{Reports: make([]ReportResponse, 0, len(reports))}
	for _, report := range reports {
		resp.Reports = append(resp.Reports, FromReport(report))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func reportIDFromURL(r *http.Request) (domain.ReportID, error) {
	return domain.ParseReportID(chi.URLParam(r, "reportID"))
}

func filterFromQuery(r *http.Request) (store.ListFilter, error) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Period:   strings.TrimSpace(q.Get("period")),
		Register: strings.TrimSpace(q.Get("register")),
	}
	if raw := strings.TrimSpace(q.Get("subjectId")); raw != "" {
		subjectID, err := domain.ParseSubjectID(raw)
		if err != nil {
			return store.ListFilter{}, err
		}
		filter.SubjectID = subjectID
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := models.ReportStatus(raw)
		if !status.IsValid() {
			return store.ListFilter{}, dErrors.New(dErrors.CodeInvalidInput, "unknown report status: "+raw)
		}
		filter.Status = status
	}
	return filter, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err, "request_id", middleware.GetRequestID(ctx))
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
