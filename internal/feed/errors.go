package feed

import (
	"errors"
	"fmt"
)

// ErrorKind classifies feed failures
type ErrorKind string

const (
	// ErrorKindQueryFailure means the collection query failed; the whole sync fails
	ErrorKindQueryFailure ErrorKind = "QueryFailure"

	// ErrorKindAssetFetchFailure means one image did not resolve; only that row is dropped
	ErrorKindAssetFetchFailure ErrorKind = "AssetFetchFailure"

	// ErrorKindNotAuthenticated means a submission had no authenticated author
	ErrorKindNotAuthenticated ErrorKind = "NotAuthenticated"

	// ErrorKindMissingImage means a submission had no image
	ErrorKindMissingImage ErrorKind = "MissingImage"

	// ErrorKindEncodingFailure means the image could not be converted to JPEG
	ErrorKindEncodingFailure ErrorKind = "EncodingFailure"

	// ErrorKindRemoteWriteFailure means the upload or the record insert was rejected
	ErrorKindRemoteWriteFailure ErrorKind = "RemoteWriteFailure"

	// ErrorKindRemoteTimeout means a remote call did not answer in time
	ErrorKindRemoteTimeout ErrorKind = "RemoteTimeout"

	// ErrorKindCanceled means the caller canceled the operation
	ErrorKindCanceled ErrorKind = "Canceled"
)

// Error is a classified feed failure
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not a feed error
func KindOf(err error) ErrorKind {
	var feedErr *Error
	if errors.As(err, &feedErr) {
		return feedErr.Kind
	}
	return ""
}

// IsKind reports whether err is a feed error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
