package feed

import "errors"

// Messages shown to end users.
const (
	MessagePostSucceeded    = "Photo posted successfully!"
	MessageMissingImage     = "Please select a photo."
	MessageEncodingFailure  = "Error converting image."
	MessageNotAuthenticated = "Error: No user is logged in."
	MessageRemoteTimeout    = "Request timed out. Please try again."
	MessageSyncFailed       = "Error loading posts."
	messagePostFailedPrefix = "Error posting photo: "
)

// UserMessage turns the outcome of a submission or sync into the text shown
// to the user. A nil error yields the success message.
func UserMessage(err error) string {
	if err == nil {
		return MessagePostSucceeded
	}

	switch KindOf(err) {
	case ErrorKindMissingImage:
		return MessageMissingImage
	case ErrorKindEncodingFailure:
		return MessageEncodingFailure
	case ErrorKindNotAuthenticated:
		return MessageNotAuthenticated
	case ErrorKindRemoteTimeout:
		return MessageRemoteTimeout
	case ErrorKindQueryFailure:
		return MessageSyncFailed
	case ErrorKindRemoteWriteFailure:
		var feedErr *Error
		if errors.As(err, &feedErr) && feedErr.Err != nil {
			return messagePostFailedPrefix + feedErr.Err.Error()
		}
		return messagePostFailedPrefix + err.Error()
	default:
		return messagePostFailedPrefix + err.Error()
	}
}
