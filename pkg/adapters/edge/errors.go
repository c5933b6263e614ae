package edge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/fixpath/pkg/domain"
)

// MediaRequest is the body of the media signing call.
type MediaRequest struct {
	Files []domain.FileSpec `json:"files"`
}

// FieldError is one rejected field in an error body.
type FieldError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Message string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// NewErrorBody renders err in the wire shape, expanding validation errors
// into fields.
func NewErrorBody(err error) ErrorBody {
	body := ErrorBody{Message: err.Error()}
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		body.Code = "not_found"
	case errors.Is(err, domain.ErrTicketNotDraft):
		body.Code = "not_draft"
	}

	var verr *domain.ValidationError
	if errs := domain.ValidationErrors(err); len(errs) > 0 {
		body.Code = "validation"
		for _, e := range errs {
			if errors.As(e, &verr) {
				body.Fields = append(body.Fields, FieldError{Key: verr.Key, Reason: verr.Reason})
			}
		}
	} else if errors.As(err, &verr) {
		body.Code = "validation"
		body.Fields = []FieldError{{Key: verr.Key, Reason: verr.Reason}}
	}
	return body
}

// StatusError is returned for error responses that have no domain meaning.
type StatusError struct {
	StatusCode int
	Body       ErrorBody
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("edge: backend returned %d: %s", e.StatusCode, e.Body.Message)
}

func decodeError(status int, method, path string, raw []byte) error {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = http.StatusText(status)
		if len(raw) > 0 && err != nil {
			body.Message = string(raw)
		}
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s %s: %s", domain.ErrTicketNotFound, method, path, body.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrTicketNotDraft, body.Message)
	case http.StatusUnprocessableEntity:
		if len(body.Fields) == 0 {
			return &domain.ValidationError{Key: "", Reason: body.Message}
		}
		errs := make([]error, len(body.Fields))
		for i, f := range body.Fields {
			errs[i] = &domain.ValidationError{Key: f.Key, Reason: f.Reason}
		}
		return &domain.AggregateError{Errors: errs}
	}
	return &StatusError{StatusCode: status, Body: body}
}

// StatusOf maps a ticket error to the HTTP status the edge functions use.
func StatusOf(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTicketNotDraft):
		return http.StatusConflict
	case errors.As(err, &verr), len(domain.ValidationErrors(err)) > 0:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
