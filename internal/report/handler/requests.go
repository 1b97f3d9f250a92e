package handler

import (
	"strings"

	"regportal/internal/report/service"
	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
)

// CreateReportRequest is the HTTP request body for POST /reports.
type CreateReportRequest struct {
	SubjectID        string      `json:"subjectId"`
	Period           string      `json:"period"`
	Register         string      `json:"register"`
	File             FileRequest `json:"file"`
	CorrectsReportID string      `json:"correctsReportId,omitempty"`

	// Parsed values (populated by Validate)
	parsedSubjectID domain.SubjectID
	parsedCorrects  *domain.ReportID
}

// FileRequest describes the file the client intends to upload.
type FileRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateReportRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subjectId is required")
	}
	subjectID, err := domain.ParseSubjectID(r.SubjectID)
	if err != nil {
		return err
	}
	r.parsedSubjectID = subjectID

	r.Period = strings.TrimSpace(r.Period)
	if r.Period == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "period is required")
	}
	r.Register = strings.TrimSpace(r.Register)
	if r.Register == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "register is required")
	}

	r.File.Filename = strings.TrimSpace(r.File.Filename)
	if r.File.Filename == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "file.filename is required")
	}
	if strings.ContainsAny(r.File.Filename, "/\\") {
		return dErrors.New(dErrors.CodeInvalidInput, "file.filename must not contain path separators")
	}
	if strings.TrimSpace(r.File.ContentType) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "file.contentType is required")
	}
	if r.File.Size <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "file.size must be positive")
	}

	if corrects := strings.TrimSpace(r.CorrectsReportID); corrects != "" {
		id, err := domain.ParseReportID(corrects)
		if err != nil {
			return err
		}
		r.parsedCorrects = &id
	}

	return nil
}

// ToInput converts the validated request into the service input.
func (r *CreateReportRequest) ToInput() service.CreateDraftInput {
	return service.CreateDraftInput{
		SubjectID:        r.parsedSubjectID,
		Period:           r.Period,
		Register:         r.Register,
		Filename:         r.File.Filename,
		ContentType:      r.File.ContentType,
		Size:             r.File.Size,
		CorrectsReportID: r.parsedCorrects,
	}
}

// DisputeRequest is the HTTP request body for POST /reports/{reportID}/dispute.
type DisputeRequest struct {
	Reason string `json:"reason"`
}

// Validate trims the reason; the length floor is the service's rule and is
// checked there.
func (r *DisputeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	return nil
}
