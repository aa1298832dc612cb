package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

type Response struct {
	Status      string      `json:"status"`
	Error       string      `json:"error,omitempty"`
	Code        string      `json:"code,omitempty"`
	PartNumbers []int       `json:"part_numbers,omitempty"`
	Retryable   bool        `json:"retryable,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	Message     string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errorMessages string
	for _, err := range errs {
		errorMessages += err.Field() + ": " + err.Tag() + "; "
	}

	return Response{
		Status: StatusError,
		Code:   "INVALID_REQUEST",
		Error:  errorMessages,
	}
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// FromError maps the media error taxonomy to an HTTP status and body.
// Unclassified errors become a 500 with a generic message.
func FromError(err error) (int, Response) {
	resp := Response{Status: StatusError, Error: err.Error()}

	var incomplete *media.IncompletePartsError
	switch {
	case errors.As(err, &incomplete):
		resp.Code = "INCOMPLETE_PART_DATA"
		resp.PartNumbers = incomplete.PartNumbers
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, media.ErrQuotaExceeded):
		resp.Code = "QUOTA_EXCEEDED"
		return http.StatusRequestEntityTooLarge, resp
	case errors.Is(err, media.ErrNotFound):
		resp.Code = "NOT_FOUND"
		resp.Error = media.ErrNotFound.Error()
		return http.StatusNotFound, resp
	case errors.Is(err, media.ErrStoreUnavailable):
		resp.Code = "STORE_UNAVAILABLE"
		resp.Error = media.ErrStoreUnavailable.Error()
		resp.Retryable = true
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, media.ErrConflict):
		resp.Code = "CONFLICT"
		return http.StatusConflict, resp
	case errors.Is(err, media.ErrNotReady):
		resp.Code = "NOT_READY"
		return http.StatusConflict, resp
	case errors.Is(err, media.ErrInvalidRequest):
		resp.Code = "INVALID_REQUEST"
		return http.StatusBadRequest, resp
	}

	resp.Error = "internal server error"
	return http.StatusInternalServerError, resp
}

// WriteError writes err using FromError
func WriteError(w http.ResponseWriter, err error) error {
	status, resp := FromError(err)
	return WriteJSON(w, status, resp)
}
