package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired means the access credentials lapsed and the single
	// refresh attempt failed. Not recoverable locally.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnauthorized means the server rejected the credentials outright.
	ErrUnauthorized = errors.New("unauthorized")
)

// Code is a backend error code. The code space is flat and closed; codes
// above 1000 are domain-specific.
type Code int

const (
	CodeUnknown            Code = 0
	CodeNotFound           Code = 1
	CodeRequestValidation  Code = 2
	CodeValidation         Code = 3
	CodeDB                 Code = 4
	CodeHTTP               Code = 5
	CodeBadValue           Code = 6
	CodeIntegrity          Code = 7
	CodeInvalidToken       Code = 8
	CodeIncorrectCreds     Code = 9
	CodeNoAccess           Code = 10
	CodeInvalidOperation   Code = 11
	CodeChatAlreadyExists  Code = 1001
	CodeCannotChatYourself Code = 1002
)

// Error is the structured body of a non-2xx REST response. It is returned
// to callers as data: the request layer does not treat domain failures as
// transport errors.
type Error struct {
	Status  int             `json:"-"`
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (code %d, status %d)", e.Message, e.Code, e.Status)
}

type errorEnvelope struct {
	Error *Error `json:"error"`
}

// decodeError drains a non-2xx response into an *Error. A body that does
// not carry the envelope still yields a usable error with CodeUnknown.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}
