package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const internalErrorMessage = "internal server error"

// errorPolicy picks the status for errors that are not validation, auth or not-found
type errorPolicy int

const (
	// backend failures are server errors
	backendIs500 errorPolicy = iota
	// backend failures are reported to the caller as a bad request with the message as-is
	backendIs400
)

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Message: message})
}

// writeServiceError maps a service error onto a status code and {message} body
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error, policy errorPolicy) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, db.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, db.ErrUnauthorized.Error())
	case errors.Is(err, db.ErrForbidden):
		writeError(w, r, http.StatusForbidden, db.ErrForbidden.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case policy == backendIs400:
		logger.Warn("Request rejected by backend",
			zap.String("op", op),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request failed",
			zap.String("op", op),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, internalErrorMessage)
	}
}

// decode reads a JSON body into v and validates its required fields
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return model.Invalid("body", "invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		return validationMessage(err)
	}
	return nil
}

// validationMessage turns validator errors into "a is required, b is required"
func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.Invalid("body", "%s", err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" is required")
	}
	return model.Invalid(fieldErrs[0].Field(), "%s", strings.Join(msgs, ", "))
}
