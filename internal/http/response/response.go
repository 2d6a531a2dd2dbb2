// Package response writes the JSON envelope shared by every endpoint:
// {"status": <http code>, "message": "...", "code": "...", "data": ...}
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Envelope is the response body of every API endpoint
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Stable error codes
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidBody        = "INVALID_BODY"
	CodeDuplicated         = "DUPLICATED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNoToken            = "NO_TOKEN"
	CodeNotSupportedType   = "NOT_SUPPORTED_TYPE"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeMalformedToken     = "MALFORMED_TOKEN"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeNoUser             = "NO_USER"
	CodeDiscardedToken     = "DISCARDED_TOKEN"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeMailDispatchFailed = "MAIL_DISPATCH_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternalError      = "INTERNAL_ERROR"
)

const internalErrorMessage = "An internal error occurred."

// JSON writes a success envelope
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Status: status, Message: message, Data: data})
}

// Error writes an error envelope
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, Envelope{Status: status, Message: message, Code: code})
}

// Internal logs err and writes a generic 500 envelope; the cause is never exposed
func Internal(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if logger != nil {
		logger.Error("internal server error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	Error(w, http.StatusInternalServerError, CodeInternalError, internalErrorMessage)
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	_ = json.NewEncoder(w).Encode(env)
}
