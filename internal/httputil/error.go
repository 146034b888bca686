package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/cricket-live/internal/service"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	slog.Error(msg, append(attrs, "error", err)...)
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: "internal server error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Code: "BAD_REQUEST", Message: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: msg})
}

func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{Code: "UNAUTHORIZED", Message: msg})
}

// ServiceError writes a service failure with the status its kind maps to.
// Anything that is not a *service.Error is logged with attrs and hidden
// behind a 500.
func ServiceError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		InternalServerError(w, msg, err, attrs...)
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation:
		status = http.StatusUnprocessableEntity
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindConflict:
		status = http.StatusConflict
	}
	slog.Warn(msg, append(attrs, "code", svcErr.Code, "error", err)...)
	WriteJSON(w, status, ErrorBody{Code: svcErr.Code, Message: err.Error()})
}
