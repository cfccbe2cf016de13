package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// Response is the JSON body written for a failed request.
type Response struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts err into the body and status sent to a client.
// Server-side failures keep their code but never expose the underlying message.
func ToResponse(err error) (int, Response) {
	var e *Error
	if !As(err, &e) {
		return http.StatusInternalServerError, Response{
			Code:    ErrCodeInternal,
			Message: "internal server error",
		}
	}

	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		msg := "internal server error"
		if e.Code == ErrCodeTimeout {
			msg = "request timed out"
		}
		return status, Response{Code: e.Code, Message: msg}
	}
	return status, Response{Code: e.Code, Message: e.Message, Details: e.Details}
}

// WriteHTTP renders err as JSON and logs server-side failures.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ToResponse(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", body.Code, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
