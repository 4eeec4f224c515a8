package feedback

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Category groups failures by what the user can do about them.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryPermission Category = "permission"
	CategoryTimeout    Category = "timeout"
	CategoryUnknown    Category = "unknown"
)

// permissionCode is the backend code for a JWT/role rejection.
const permissionCode = "PGRST301"

type codedError interface {
	ErrorCode() string
}

type statusError interface {
	HTTPStatus() int
}

// Classify inspects err for timeouts, transport failures, and permission
// rejections, falling back to message text.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	var coded codedError
	if errors.As(err, &coded) && coded.ErrorCode() == permissionCode {
		return CategoryPermission
	}
	var status statusError
	if errors.As(err, &status) {
		switch status.HTTPStatus() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return CategoryPermission
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return CategoryTimeout
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"), strings.Contains(msg, "offline"):
		return CategoryNetwork
	case strings.Contains(msg, "permission"), strings.Contains(msg, "not allowed"):
		return CategoryPermission
	case strings.Contains(msg, "timeout"):
		return CategoryTimeout
	}
	return CategoryUnknown
}

// Friendly renders a user-facing message for err. failureKey names the
// operation-specific failure text used for unclassified errors.
func (m *Messages) Friendly(err error, failureKey string) string {
	switch Classify(err) {
	case CategoryNetwork:
		return m.Text(KeyFriendlyNetwork)
	case CategoryPermission:
		return m.Text(KeyFriendlyPermission)
	case CategoryTimeout:
		return m.Text(KeyFriendlyTimeout)
	default:
		return m.Text(KeyFriendlyDefault, m.Text(failureKey))
	}
}
