package validation

import (
	"context"
	"path"
	"strings"

	"regportal/internal/report/models"
)

// RuleFunc adapts a function to the Engine interface.
type RuleFunc func(ctx context.Context, job Job) (models.Outcome, []models.FieldError, error)

func (f RuleFunc) Validate(ctx context.Context, job Job) (models.Outcome, []models.FieldError, error) {
	return f(ctx, job)
}

// BasicEngine applies file-level checks that every register shares: the file
// must exist in storage under the expected key and carry a supported
// extension. Register-specific cell validation plugs in behind the same
// Engine interface.
type BasicEngine struct {
	allowedExtensions map[string]bool
}

func NewBasicEngine() *BasicEngine {
	return &BasicEngine{
		allowedExtensions: map[string]bool{
			".xlsx": true,
			".xls":  true,
			".csv":  true,
		},
	}
}

func (e *BasicEngine) Validate(_ context.Context, job Job) (models.Outcome, []models.FieldError, error) {
	var errs []models.FieldError
	if job.StorageKey == "" {
		errs = append(errs, models.FieldError{Field: "file", Message: "no uploaded file found for this report"})
	}
	ext := strings.ToLower(path.Ext(job.Filename))
	if !e.allowedExtensions[ext] {
		errs = append(errs, models.FieldError{Field: "file", Message: "unsupported file type: " + ext})
	}
	if len(errs) > 0 {
		return models.OutcomeValidationErrors, errs, nil
	}
	return models.OutcomeSuccess, nil, nil
}
