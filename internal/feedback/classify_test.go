package feedback_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/feedback"
)

type backendErr struct {
	code   string
	status int
}

func (e backendErr) Error() string    { return "backend rejected request" }
func (e backendErr) ErrorCode() string { return e.code }
func (e backendErr) HTTPStatus() int   { return e.status }

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want feedback.Category
	}{
		"deadline":        {err: fmt.Errorf("loading: %w", context.DeadlineExceeded), want: feedback.CategoryTimeout},
		"dial":            {err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: feedback.CategoryNetwork},
		"jwt code":        {err: fmt.Errorf("wrap: %w", backendErr{code: "PGRST301", status: 400}), want: feedback.CategoryPermission},
		"forbidden":       {err: backendErr{status: 403}, want: feedback.CategoryPermission},
		"message network": {err: errors.New("Network request failed"), want: feedback.CategoryNetwork},
		"message denied":  {err: errors.New("operation not allowed"), want: feedback.CategoryPermission},
		"message timeout": {err: errors.New("upstream timeout"), want: feedback.CategoryTimeout},
		"other":           {err: errors.New("duplicate key"), want: feedback.CategoryUnknown},
		"nil":             {err: nil, want: feedback.CategoryUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, feedback.Classify(tc.err))
		})
	}
}

func TestFriendly(t *testing.T) {
	m := feedback.MustLoadMessages("en-US")
	require.Equal(t, "You do not have permission to perform this action.", m.Friendly(backendErr{status: 401}, feedback.KeyErrMoveTask))
	require.Equal(t, "Failed to move task. Please try again later.", m.Friendly(errors.New("boom"), feedback.KeyErrMoveTask))
}
