package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"registrationportal/internal/errdefs"
)

const (
	msgSubmitted     = "Application submitted successfully"
	msgInvalidMethod = "Invalid request method"
	msgInvalidForm   = "Invalid form data"
	msgTooLarge      = "Request is too large"
	msgStorage       = "Failed to save submission"
	msgRateLimited   = "Too many submissions. Please wait a minute before trying again."
	msgUnexpected    = "An unexpected error occurred"
)

var ErrBadForm = errors.New("bad form")

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

func mapErr(err error) int {
	var ve *errdefs.ValidationError
	var fe *errdefs.FileUploadError
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, errdefs.ErrMethodNotAllowed),
		errors.Is(err, ErrBadForm),
		errors.As(err, &ve),
		errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errdefs.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown to the applicant for err.
func userMessage(err error) string {
	var ve *errdefs.ValidationError
	var fe *errdefs.FileUploadError
	var se *errdefs.StorageError
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, errdefs.ErrMethodNotAllowed):
		return msgInvalidMethod
	case errors.As(err, &ve):
		return ve.Reason
	case errors.As(err, &fe):
		return fe.Error()
	case errors.As(err, &mbe):
		return msgTooLarge
	case errors.Is(err, errdefs.ErrRateLimited):
		return msgRateLimited
	case errors.Is(err, ErrBadForm):
		return msgInvalidForm
	case errors.As(err, &se):
		return msgStorage
	}
	return msgUnexpected
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, submitResponse{Success: false, Message: msg})
}
