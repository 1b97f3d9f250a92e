// Package service is the report lifecycle manager. It owns every status
// transition: guards run before any write, the write itself is a store-level
// compare-and-set, and audit records and lifecycle events follow the write
// without being able to roll it back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"regportal/internal/access"
	"regportal/internal/audit"
	"regportal/internal/events"
	"regportal/internal/report/metrics"
	"regportal/internal/report/models"
	"regportal/internal/report/store"
	"regportal/internal/storage"
	"regportal/internal/validation"
	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/platform/sentinel"
)

// disputeReasonMinLen is the portal's minimum for a dispute justification.
const disputeReasonMinLen = 10

// Auditor receives one record per state transition, best-effort.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service drives the report lifecycle. All dependencies are injected; there
// are no package-level singletons.
type Service struct {
	store    store.Store
	access   access.Evaluator
	queue    validation.Queue
	uploads  storage.Provider
	auditor  Auditor
	events   events.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	deadline time.Duration
	now      func() time.Time
	tracer   trace.Tracer
}

// Config bundles the service's dependencies.
type Config struct {
	Store    store.Store
	Access   access.Evaluator
	Queue    validation.Queue
	Uploads  storage.Provider
	Auditor  Auditor
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Deadline time.Duration
	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("report store is required")
	}
	if cfg.Access == nil {
		return nil, errors.New("access evaluator is required")
	}
	if cfg.Queue == nil {
		return nil, errors.New("validation queue is required")
	}
	if cfg.Uploads == nil {
		return nil, errors.New("upload provider is required")
	}
	if cfg.Events == nil {
		cfg.Events = events.NewInMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		access:   cfg.Access,
		queue:    cfg.Queue,
		uploads:  cfg.Uploads,
		auditor:  cfg.Auditor,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		deadline: cfg.Deadline,
		now:      cfg.Now,
		tracer:   otel.Tracer("regportal/report"),
	}, nil
}

// CreateDraftInput carries the fields a draft registration needs.
type CreateDraftInput struct {
	SubjectID   domain.SubjectID
	Period      string
	Register    string
	Filename    string
	ContentType string
	Size        int64
	// CorrectsReportID optionally links the draft to the report it corrects.
	CorrectsReportID *domain.ReportID
}

func (in CreateDraftInput) validate() error {
	switch {
	case in.SubjectID.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	case strings.TrimSpace(in.Period) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "reporting period is required")
	case strings.TrimSpace(in.Register) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "register is required")
	case strings.TrimSpace(in.Filename) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "filename is required")
	case strings.TrimSpace(in.ContentType) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "content type is required")
	case in.Size <= 0:
		return dErrors.New(dErrors.CodeInvalidInput, "file size must be positive")
	}
	return nil
}

// CreateDraft registers upload intent: a new DRAFT report plus the storage
// target the client uploads the file to.
func (s *Service) CreateDraft(ctx context.Context, actor domain.Actor, in CreateDraftInput) (*models.Report, storage.UploadTarget, error) {
	ctx, span := s.tracer.Start(ctx, "report.create_draft")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, storage.UploadTarget{}, err
	}
	if err := s.requireSubjectAccess(ctx, actor, in.SubjectID); err != nil {
		return nil, storage.UploadTarget{}, err
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:        domain.NewReportID(),
		SubjectID: in.SubjectID,
		Period:    in.Period,
		Register:  in.Register,
		File: models.FileDescriptor{
			Filename:    in.Filename,
			ContentType: in.ContentType,
			Size:        in.Size,
		},
		Status:           models.StatusDraft,
		CorrectsReportID: in.CorrectsReportID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	report.File.StorageKey = fmt.Sprintf("reports/%s/%s", report.ID.String(), in.Filename)
	span.SetAttributes(attribute.String("report.id", report.ID.String()))

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, storage.UploadTarget{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create report", err)
	}

	target, err := s.uploads.UploadTargetFor(ctx, report.File.StorageKey)
	if err != nil {
		return nil, storage.UploadTarget{}, dErrors.Wrap(dErrors.CodeInternal, "failed to issue upload target", err)
	}

	s.emitAudit(ctx, actor, audit.ActionReportCreate, report.ID, "", string(models.StatusDraft))
	return report, target, nil
}

// Submit moves a DRAFT report into the validation pipeline. It returns the
// attempt id as soon as the PENDING attempt is durably recorded; validation
// itself runs out-of-band and reports back through RecordValidationOutcome.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, reportID domain.ReportID) (domain.AttemptID, error) {
	ctx, span := s.tracer.Start(ctx, "report.submit",
		trace.WithAttributes(attribute.String("report.id", reportID.String())))
	defer span.End()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return domain.AttemptID{}, err
	}
	if err := s.requireSubjectAccess(ctx, actor, report.SubjectID); err != nil {
		return domain.AttemptID{}, err
	}
	if report.Status != models.StatusDraft {
		return domain.AttemptID{}, dErrors.New(dErrors.CodeInvalidState, "only draft reports can be submitted")
	}

	// The CAS elects exactly one winner under concurrent submission; the
	// loser sees the status already moved and gets InvalidState.
	ok, err := s.store.UpdateReportStatus(ctx, reportID, models.StatusDraft, models.StatusSubmitted)
	if err != nil {
		return domain.AttemptID{}, s.translateStoreErr(err)
	}
	if !ok {
		return domain.AttemptID{}, dErrors.New(dErrors.CodeInvalidState, "report is no longer a draft")
	}
	s.recordTransition(ctx, reportID, models.StatusSubmitted)

	now := s.now().UTC()
	attempt := &models.ValidationAttempt{
		ID:        domain.NewAttemptID(),
		ReportID:  reportID,
		Status:    models.AttemptPending,
		Deadline:  now.Add(s.deadline),
		CreatedAt: now,
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		return domain.AttemptID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create validation attempt", err)
	}

	if ok, err := s.store.UpdateReportStatus(ctx, reportID, models.StatusSubmitted, models.StatusProcessing); err != nil || !ok {
		return domain.AttemptID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to mark report processing", err)
	}
	s.recordTransition(ctx, reportID, models.StatusProcessing)

	// Enqueue failures are deliberately non-fatal: the attempt is durable,
	// and the sweeper converts a job that never runs into TIMEOUT.
	if err := s.queue.Enqueue(ctx, validation.Job{
		ReportID:   reportID,
		AttemptID:  attempt.ID,
		StorageKey: report.File.StorageKey,
		Filename:   report.File.Filename,
	}); err != nil {
		s.logger.Error("failed to enqueue validation job",
			"error", err,
			"report_id", reportID.String(),
			"attempt_id", attempt.ID.String(),
		)
	}

	s.emitAudit(ctx, actor, audit.ActionReportSubmit, reportID, string(models.StatusDraft), string(models.StatusProcessing))
	return attempt.ID, nil
}

// RecordValidationOutcome is the single-writer callback from the validation
// runner. The attempt-level CAS makes it reject duplicate or late outcomes
// instead of silently overwriting a terminal status.
func (s *Service) RecordValidationOutcome(ctx context.Context, attemptID domain.AttemptID, outcome models.Outcome, fieldErrs []models.FieldError) error {
	ctx, span := s.tracer.Start(ctx, "report.record_outcome",
		trace.WithAttributes(attribute.String("attempt.id", attemptID.String())))
	defer span.End()

	switch outcome {
	case models.OutcomeSuccess, models.OutcomeValidationErrors, models.OutcomeTechError:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown validation outcome: "+string(outcome))
	}
	if outcome != models.OutcomeValidationErrors && len(fieldErrs) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "field errors are only valid with a VALIDATION_ERRORS outcome")
	}

	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return s.translateStoreErr(err)
	}

	completedAt := s.now().UTC()
	ok, err := s.store.CompleteAttempt(ctx, attemptID, outcome, fieldErrs, completedAt)
	if err != nil {
		return s.translateStoreErr(err)
	}
	if !ok {
		return dErrors.New(dErrors.CodeInvalidState, "validation attempt already has a terminal outcome")
	}

	next := outcome.ReportStatusFor()
	ok, err = s.store.UpdateReportStatus(ctx, attempt.ReportID, models.StatusProcessing, next)
	if err != nil {
		return s.translateStoreErr(err)
	}
	if !ok {
		// The attempt CAS was won, so the report should still be
		// PROCESSING. Log loudly rather than failing the runner.
		s.logger.Error("report status is out of step with its attempt",
			"report_id", attempt.ReportID.String(),
			"attempt_id", attemptID.String(),
			"outcome", string(outcome),
		)
		return nil
	}
	s.recordTransition(ctx, attempt.ReportID, next)
	if s.metrics != nil {
		s.metrics.ValidationDuration.Observe(completedAt.Sub(attempt.CreatedAt).Seconds())
	}
	s.emitAudit(ctx, domain.Actor{}, audit.ActionReportOutcome, attempt.ReportID, string(models.StatusProcessing), string(next))
	return nil
}

// Dispute lets regulator staff contest a validation-error outcome. The
// emitted event carries the reason; the messaging collaborator opens the
// thread.
func (s *Service) Dispute(ctx context.Context, actor domain.Actor, reportID domain.ReportID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "report.dispute",
		trace.WithAttributes(attribute.String("report.id", reportID.String())))
	defer span.End()

	if !actor.Internal {
		return dErrors.New(dErrors.CodeAccessDenied, "only regulator staff can dispute reports")
	}
	if len(strings.TrimSpace(reason)) < disputeReasonMinLen {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("dispute reason must be at least %d characters", disputeReasonMinLen))
	}

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status != models.StatusValidationErrors {
		return dErrors.New(dErrors.CodeInvalidState, "only reports with validation errors can be disputed")
	}

	ok, err := s.store.UpdateReportStatus(ctx, reportID, models.StatusValidationErrors, models.StatusDisputedByUKNF)
	if err != nil {
		return s.translateStoreErr(err)
	}
	if !ok {
		return dErrors.New(dErrors.CodeInvalidState, "report status changed before the dispute was recorded")
	}

	s.recordTransition(ctx, reportID, models.StatusDisputedByUKNF)
	if err := s.events.PublishDisputed(ctx, events.Disputed{
		ReportID:  reportID,
		SubjectID: report.SubjectID,
		Reason:    reason,
		RaisedBy:  actor.ID,
	}); err != nil {
		s.logger.Error("failed to publish dispute event", "error", err, "report_id", reportID.String())
	}
	s.emitAudit(ctx, actor, audit.ActionReportDispute, reportID, string(models.StatusValidationErrors), string(models.StatusDisputedByUKNF))
	return nil
}

// Delete removes a report that is still a draft. Anything past DRAFT is part
// of the regulatory record and stays.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, reportID domain.ReportID) error {
	ctx, span := s.tracer.Start(ctx, "report.delete",
		trace.WithAttributes(attribute.String("report.id", reportID.String())))
	defer span.End()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.requireSubjectAccess(ctx, actor, report.SubjectID); err != nil {
		return err
	}
	if report.Status != models.StatusDraft {
		return dErrors.New(dErrors.CodeInvalidState, "only draft reports can be deleted")
	}

	if err := s.store.DeleteReport(ctx, reportID, models.StatusDraft); err != nil {
		return s.translateStoreErr(err)
	}
	s.emitAudit(ctx, actor, audit.ActionReportDelete, reportID, string(models.StatusDraft), "")
	return nil
}

// Get returns the report and its full validation history.
func (s *Service) Get(ctx context.Context, actor domain.Actor, reportID domain.ReportID) (*models.Report, []*models.ValidationAttempt, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireSubjectAccess(ctx, actor, report.SubjectID); err != nil {
		return nil, nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, reportID)
	if err != nil {
		return nil, nil, s.translateStoreErr(err)
	}
	return report, attempts, nil
}

// List returns reports visible to the actor, narrowed by the filter.
// External users only see subjects they hold approved grants for.
func (s *Service) List(ctx context.Context, actor domain.Actor, filter store.ListFilter) ([]*models.Report, error) {
	visible, err := s.access.VisibleSubjects(ctx, actor)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to resolve visible subjects", err)
	}
	if visible != nil {
		if len(visible) == 0 {
			return []*models.Report{}, nil
		}
		filter.SubjectIDs = visible
	}
	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return reports, nil
}

func (s *Service) getReport(ctx context.Context, reportID domain.ReportID) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load report", err)
	}
	return report, nil
}

func (s *Service) requireSubjectAccess(ctx context.Context, actor domain.Actor, subjectID domain.SubjectID) error {
	allowed, err := s.access.CanActOn(ctx, actor, subjectID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to evaluate subject access", err)
	}
	if !allowed {
		return dErrors.New(dErrors.CodeAccessDenied, "access denied to subject")
	}
	return nil
}

func (s *Service) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "operation not legal in current status")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeInvalidState, "conflicting write detected")
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "store operation failed", err)
	}
}

func (s *Service) recordTransition(ctx context.Context, reportID domain.ReportID, status models.ReportStatus) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(status))
	}
	if err := s.events.PublishStatusChanged(ctx, events.StatusChanged{
		ReportID:   reportID,
		NewStatus:  string(status),
		OccurredAt: s.now().UTC(),
	}); err != nil {
		s.logger.Error("failed to publish status change", "error", err, "report_id", reportID.String())
	}
}

func (s *Service) emitAudit(ctx context.Context, actor domain.Actor, action audit.Action, reportID domain.ReportID, before, after string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "report",
		EntityID: reportID.String(),
		Before:   before,
		After:    after,
	})
}
