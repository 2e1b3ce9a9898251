package http

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
	"github.com/vadimbarashkov/linkdrop/internal/usecase"
)

const statusError = "error"

// listRequest holds the raw listing parameters shared by both entry kinds.
// Paging and sorting values are never rejected; unusable ones fall back to defaults.
type listRequest struct {
	Page          string `json:"page"`
	Num           string `json:"num"`
	OrderBy       string `json:"order_by"`
	Order         string `json:"order"`
	CreatedBefore string `json:"created_before" validate:"omitempty,number|datetime=2006-01-02T15:04:05Z07:00"`
	ExpireBefore  string `json:"expire_before" validate:"omitempty,number|datetime=2006-01-02T15:04:05Z07:00"`
}

type listLinksRequest struct {
	listRequest
	Dest string `json:"dest" validate:"omitempty,max=2048"`
}

type listFilesRequest struct {
	listRequest
	Filename string `json:"filename" validate:"omitempty,max=255"`
	Mime     string `json:"mime" validate:"omitempty,max=255"`
}

// createLinkRequest is the text body of a link creation request.
type createLinkRequest struct {
	Destination string `json:"destination" validate:"required"`
}

// createdResponse is returned for a newly created entry.
type createdResponse struct {
	Key       string `json:"key"`
	AccessURL string `json:"access_url"`
}

type linkResponse struct {
	Key         string     `json:"key"`
	Destination string     `json:"destination"`
	AccessURL   string     `json:"access_url"`
	AccessCount int64      `json:"access_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpireAt    *time.Time `json:"expire_at"`
}

func toLinkResponse(link *entity.Link) linkResponse {
	return linkResponse{
		Key:         link.Key,
		Destination: link.Destination,
		AccessURL:   link.AccessURL,
		AccessCount: link.AccessCount,
		CreatedAt:   link.CreatedAt,
		ExpireAt:    link.ExpireAt,
	}
}

type fileResponse struct {
	Key         string     `json:"key"`
	Filename    string     `json:"filename"`
	MIME        string     `json:"mime"`
	Filesize    int64      `json:"filesize"`
	AccessURL   string     `json:"access_url"`
	AccessCount int64      `json:"access_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpireAt    *time.Time `json:"expire_at"`
}

func toFileResponse(file *entity.File) fileResponse {
	return fileResponse{
		Key:         file.Key,
		Filename:    file.Filename,
		MIME:        file.MIME,
		Filesize:    file.Size,
		AccessURL:   file.AccessURL,
		AccessCount: file.AccessCount,
		CreatedAt:   file.CreatedAt,
		ExpireAt:    file.ExpireAt,
	}
}

// pageResponse wraps one page of a listing.
type pageResponse[T any] struct {
	Items          []T   `json:"items"`
	Total          int64 `json:"total"`
	Page           int   `json:"page"`
	Num            int   `json:"num"`
	TotalPages     int64 `json:"total_pages"`
	RemainingPages int64 `json:"remaining_pages"`
}

func toPageResponse[E, T any](page *entity.Page[E], convert func(*E) T) pageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, convert(&page.Items[i]))
	}

	return pageResponse[T]{
		Items:          items,
		Total:          page.Total,
		Page:           page.Page,
		Num:            page.PageSize,
		TotalPages:     page.TotalPages(),
		RemainingPages: page.Remaining(),
	}
}

type accessResponse struct {
	ID       int64     `json:"id"`
	Key      string    `json:"key"`
	IP       string    `json:"ip,omitempty"`
	Country  string    `json:"country,omitempty"`
	City     string    `json:"city,omitempty"`
	UA       string    `json:"ua,omitempty"`
	Referer  string    `json:"referer,omitempty"`
	AccessAt time.Time `json:"access_at"`
}

func toAccessResponses(accesses []entity.Access) []accessResponse {
	resp := make([]accessResponse, 0, len(accesses))
	for _, a := range accesses {
		resp = append(resp, accessResponse{
			ID:       a.ID,
			Key:      a.Key,
			IP:       a.IP,
			Country:  a.Country,
			City:     a.City,
			UA:       a.UserAgent,
			Referer:  a.Referer,
			AccessAt: a.AccessAt,
		})
	}
	return resp
}

type sweepResponse struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	LinksDeleted int64     `json:"links_deleted"`
	FilesDeleted int64     `json:"files_deleted"`
}

func toSweepResponse(report *usecase.SweepReport) sweepResponse {
	return sweepResponse{
		ID:           report.ID,
		At:           report.At,
		LinksDeleted: report.LinksDeleted,
		FilesDeleted: report.FilesDeleted,
	}
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	missingFileResponse = errorResponse{
		Status:  statusError,
		Message: "missing form file field \"file\"",
	}

	payloadTooLargeResponse = errorResponse{
		Status:  statusError,
		Message: "payload too large",
	}

	invalidKeyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid key",
	}

	invalidInputResponse = errorResponse{
		Status:  statusError,
		Message: "invalid input",
	}

	notFoundResponse = errorResponse{
		Status:  statusError,
		Message: "not found",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch {
	case tag == "required":
		return "this field is required"
	case tag == "number":
		return "must be a number"
	case strings.HasPrefix(tag, "number|datetime"):
		return "must be unix milliseconds or an RFC 3339 timestamp"
	case tag == "max":
		return "value is too long"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
