package handlers

import (
	"net/http"

	"engram/pkg/common"
	pkgerrors "engram/pkg/errors"
)

// respondJSON wraps data in the standard API envelope.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	common.RespondJSON(w, status, data)
}

// respondError sends a structured error with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	code := common.StandardErrorCodes.InternalError
	switch status {
	case http.StatusBadRequest:
		code = common.StandardErrorCodes.BadRequest
	case http.StatusUnauthorized:
		code = common.StandardErrorCodes.Unauthorized
	case http.StatusForbidden:
		code = common.StandardErrorCodes.Forbidden
	case http.StatusNotFound:
		code = common.StandardErrorCodes.NotFound
	case http.StatusConflict:
		code = common.StandardErrorCodes.Conflict
	case http.StatusTooManyRequests:
		code = common.StandardErrorCodes.TooManyRequests
	}
	common.RespondError(w, status, code, message)
}

// respondDomainError maps an application error to its HTTP status.
// Unclassified errors come back as a generic 500 so internals never
// leak to clients.
func respondDomainError(w http.ResponseWriter, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.RespondError(w, status, string(appErr.Type), appErr.Message)
		return
	}
	respondError(w, http.StatusInternalServerError, "internal server error")
}
