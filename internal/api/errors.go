package api

import (
	"errors"
	"net/http"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/identity"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Kind names used in ErrorResponse.
const (
	KindValidation      = "validation"
	KindNotFound        = "not_found"
	KindConflict        = "conflict"
	KindInvalidState    = "invalid_state"
	KindUnauthenticated = "unauthenticated"
	KindUnavailable     = "unavailable"
	KindInternal        = "internal"
)

var errAttachmentsDisabled = errors.New("attachments are not configured")

// statusFor maps an error to its HTTP status and kind name.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, KindUnauthenticated
	case errors.Is(err, errAttachmentsDisabled):
		return http.StatusNotImplemented, KindUnavailable
	}
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest, KindValidation
	case apperr.NotFound:
		return http.StatusNotFound, KindNotFound
	case apperr.Conflict:
		return http.StatusConflict, KindConflict
	case apperr.InvalidState:
		return http.StatusUnprocessableEntity, KindInvalidState
	}
	return http.StatusInternalServerError, KindInternal
}

// respondError writes err as an ErrorResponse. Internal errors are logged
// and their message withheld.
func (s *Server) respondError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind, Fields: apperr.FieldsOf(err)}
	if status == http.StatusInternalServerError {
		s.deps.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		resp.Error = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
