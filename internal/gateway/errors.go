package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/superemem/azwaryfocus/internal/repository"
	"github.com/tidwall/gjson"
)

// Backend codes with a local meaning.
const (
	CodeNoRows  = "PGRST116"
	CodeJWT     = "PGRST301"
	CodeUnique  = "23505"
	CodeForeign = "23503"

	codeInvalidGrant       = "invalid_grant"
	codeInvalidCredentials = "invalid_credentials"
)

// Error is a backend rejection.
type Error struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// ErrorCode returns the backend error code.
func (e *Error) ErrorCode() string { return e.Code }

// HTTPStatus returns the response status.
func (e *Error) HTTPStatus() int { return e.Status }

// Unwrap maps the rejection onto repository sentinels.
func (e *Error) Unwrap() error {
	switch {
	case e.Code == CodeNoRows || e.Status == http.StatusNotFound:
		return repository.ErrNotFound
	case e.Code == CodeJWT || e.Code == codeInvalidGrant || e.Code == codeInvalidCredentials,
		e.Status == http.StatusUnauthorized:
		return repository.ErrUnauthorized
	case e.Code == CodeUnique || e.Status == http.StatusConflict:
		return repository.ErrConflict
	case e.Code == CodeForeign:
		return repository.ErrForeignKeyViolation
	}
	return nil
}

// decodeError reads both PostgREST ({code,message,details,hint}) and auth
// ({error,error_description} or {msg}) error bodies.
func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if !gjson.ValidBytes(body) {
		e.Message = strings.TrimSpace(string(body))
		return e
	}
	res := gjson.ParseBytes(body)
	e.Code = firstString(res, "error_code", "code")
	if e.Code == "" && res.Get("error_description").Exists() {
		e.Code = res.Get("error").String()
	}
	e.Message = firstString(res, "message", "msg", "error_description", "error")
	e.Details = res.Get("details").String()
	e.Hint = res.Get("hint").String()
	return e
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
