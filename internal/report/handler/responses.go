package handler

import (
	"time"

	"regportal/internal/report/models"
	"regportal/internal/storage"
)

// ReportResponse is the HTTP representation of a report.
type ReportResponse struct {
	ID               string       `json:"id"`
	SubjectID        string       `json:"subjectId"`
	Period           string       `json:"period"`
	Register         string       `json:"register"`
	File             FileResponse `json:"file"`
	Status           string       `json:"status"`
	CorrectsReportID string       `json:"correctsReportId,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// FileResponse is the file portion of a report response.
type FileResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadTargetResponse tells the client where to put the file.
type UploadTargetResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateReportResponse is the HTTP response for POST /reports.
type CreateReportResponse struct {
	Report ReportResponse       `json:"report"`
	Upload UploadTargetResponse `json:"upload"`
}

// SubmitResponse is the HTTP response for POST /reports/{reportID}/submit.
type SubmitResponse struct {
	AttemptID string `json:"attemptId"`
	Status    string `json:"status"`
}

// AttemptResponse is the HTTP representation of a validation attempt.
type AttemptResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	Outcome     string              `json:"outcome,omitempty"`
	Errors      []models.FieldError `json:"errors,omitempty"`
	Deadline    time.Time           `json:"deadline"`
	CreatedAt   time.Time           `json:"createdAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

// GetReportResponse is the HTTP response for GET /reports/{reportID}.
type GetReportResponse struct {
	Report   ReportResponse    `json:"report"`
	Attempts []AttemptResponse `json:"attempts"`
}

// ListReportsResponse is the HTTP response for GET /reports.
type ListReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
}

// FromReport converts a domain report to its HTTP representation.
func FromReport(report *models.Report) ReportResponse {
	resp := ReportResponse{
		ID:        report.ID.String(),
		SubjectID: report.SubjectID.String(),
		Period:    report.Period,
		Register:  report.Register,
		File: FileResponse{
			Filename:    report.File.Filename,
			ContentType: report.File.ContentType,
			Size:        report.File.Size,
		},
		Status:    string(report.Status),
		CreatedAt: report.CreatedAt,
		UpdatedAt: report.UpdatedAt,
	}
	if report.CorrectsReportID != nil {
		resp.CorrectsReportID = report.CorrectsReportID.String()
	}
	return resp
}

// FromUploadTarget converts a storage upload target to its HTTP representation.
func FromUploadTarget(target storage.UploadTarget) UploadTargetResponse {
	return UploadTargetResponse{
		Key:       target.Key,
		URL:       target.URL,
		ExpiresAt: target.ExpiresAt,
	}
}

// FromAttempt converts a domain validation attempt to its HTTP representation.
func FromAttempt(attempt *models.ValidationAttempt) AttemptResponse {
	return AttemptResponse{
		ID:          attempt.ID.String(),
		Status:      string(attempt.Status),
		Outcome:     string(attempt.Outcome),
		Errors:      attempt.Errors,
		Deadline:    attempt.Deadline,
		CreatedAt:   attempt.CreatedAt,
		CompletedAt: attempt.CompletedAt,
	}
}
