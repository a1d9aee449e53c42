package httptransport

import (
	"context"
	"errors"
	"net/http"

	"fieldreg/internal/cascade"
	"fieldreg/internal/form"
	"fieldreg/internal/options"
	"fieldreg/internal/platform/middleware"
	"fieldreg/internal/records"
	"fieldreg/internal/session"
	"fieldreg/pkg/platform/httputil"
	"fieldreg/pkg/platform/sentinel"
)

// errorResponse maps a service error to a status and envelope. The order
// matters: a PersistenceError may also match sentinel.ErrNotFound.
func errorResponse(err error) (int, httputil.ErrorResponse) {
	var (
		verrs  form.ValidationErrors
		perr   *records.PersistenceError
		lookup *options.LookupError
	)
	switch {
	case errors.As(err, &verrs):
		out := make(map[string]string, len(verrs))
		for _, v := range verrs {
			if _, seen := out[v.Field]; !seen {
				out[v.Field] = v.Message
			}
		}
		return http.StatusUnprocessableEntity, httputil.ErrorResponse{
			Error:       "validation_failed",
			Description: "one or more fields are invalid",
			Fields:      out,
		}
	case errors.Is(err, sentinel.ErrForbidden):
		return http.StatusForbidden, httputil.ErrorResponse{Error: "forbidden", Description: err.Error()}
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, httputil.ErrorResponse{Error: "not_found", Description: err.Error()}
	case errors.As(err, &perr):
		return http.StatusBadGateway, httputil.ErrorResponse{Error: "persistence_failed", Description: perr.Message}
	case errors.As(err, &lookup):
		return http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "options_unavailable"}
	case errors.Is(err, form.ErrUnknownKind),
		errors.Is(err, form.ErrUnknownField),
		errors.Is(err, cascade.ErrUnknownLevel),
		errors.Is(err, cascade.ErrUnknownOption),
		errors.Is(err, session.ErrEmptyDocument),
		errors.Is(err, session.ErrEmptySessionID):
		return http.StatusBadRequest, httputil.ErrorResponse{Error: "bad_request", Description: err.Error()}
	case errors.Is(err, sentinel.ErrInvalidState):
		return http.StatusConflict, httputil.ErrorResponse{Error: "conflict", Description: err.Error()}
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, httputil.ErrorResponse{Error: "timeout"}
	}
	return http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal_error"}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", middleware.GetRequestID(ctx),
			"status", status,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"status", status,
			"error", err,
		)
	}
	httputil.WriteError(w, status, resp)
}
