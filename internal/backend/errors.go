package backend

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/stacklok/photofeed/internal/httpclient"
)

// Error codes returned by Parse-compatible servers.
const (
	CodeObjectNotFound      = 101
	CodeInvalidSessionToken = 209
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and none is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrMissingAssetRef is returned when an asset reference has no location.
	ErrMissingAssetRef = errors.New("asset reference has no url")
)

// RemoteError is a failure reported by, or while talking to, the remote store.
type RemoteError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": remote error"
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *RemoteError) Timeout() bool {
	return httpclient.IsTimeout(e.Err)
}

// IsTimeout reports whether err is, or wraps, a timed out remote call.
func IsTimeout(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Timeout()
	}
	return httpclient.IsTimeout(err)
}

// IsInvalidSession reports whether the remote store rejected the session token.
func IsInvalidSession(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Code == CodeInvalidSessionToken
}

// newRemoteError converts a transport failure into a RemoteError, decoding the
// {"code":..., "error":...} body the server sends with 4xx/5xx responses.
func newRemoteError(op string, err error) *RemoteError {
	remoteErr := &RemoteError{Op: op, Err: err}

	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return remoteErr
	}

	remoteErr.StatusCode = httpErr.StatusCode
	remoteErr.Message = httpErr.Message

	if !gjson.ValidBytes(httpErr.Body) {
		return remoteErr
	}
	if msg := gjson.GetBytes(httpErr.Body, "error"); msg.Type == gjson.String && msg.Str != "" {
		remoteErr.Code = int(gjson.GetBytes(httpErr.Body, "code").Int())
		remoteErr.Message = msg.Str
	}
	return remoteErr
}
