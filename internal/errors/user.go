package errors

import "errors"

// Status codes returned to the engine. Zero is success; every failure is negative.
const (
	StatusSuccess  = 0
	StatusFailure  = -1
	StatusArgFail  = -6
	StatusPlatform = -7
	StatusMemFail  = -8
)

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
	// Status is the engine status code for this error kind.
	Status int
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinels to user-facing info. Component sentinels
// come before kinds so the more specific message wins.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{
		err: ErrShortFill,
		info: ErrorInfo{
			Message: "The entropy source returned fewer bytes than requested.",
			Action:  "Check that /dev/urandom is readable and not exhausted.",
			Status:  StatusPlatform,
		},
	},
	{
		err: ErrRetryBoundExceeded,
		info: ErrorInfo{
			Message: "A read was interrupted too many times.",
			Action:  "Retry the operation; persistent failures indicate a signal storm.",
			Status:  StatusPlatform,
		},
	},
	{
		err: ErrUnsupportedFlag,
		info: ErrorInfo{
			Message: "The mutex was requested with an unsupported flag.",
			Status:  StatusPlatform,
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "The configuration contains an invalid value.",
			Action:  "Run 'osdep config show' and correct the reported key.",
			Status:  StatusArgFail,
		},
	},
	{
		err: ErrPlatformFailure,
		info: ErrorInfo{
			Message: "An operating system call failed.",
			Status:  StatusPlatform,
		},
	},
	{
		err: ErrMemoryFailure,
		info: ErrorInfo{
			Message: "The memory pool refused the allocation.",
			Action:  "Raise fileload.pool_limit or load a smaller file.",
			Status:  StatusMemFail,
		},
	},
	{
		err: ErrArgumentFailure,
		info: ErrorInfo{
			Message: "An invalid argument was supplied.",
			Status:  StatusArgFail,
		},
	},
	{
		err: ErrFatalCorruption,
		info: ErrorInfo{
			Message: "A lock primitive malfunctioned; the process cannot continue.",
			Status:  StatusFailure,
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error using errors.Is()
// traversal. Returns an ErrorInfo with the original message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error(), Status: StatusFailure}
}

// Status returns the engine status code for err. A nil error is StatusSuccess.
func Status(err error) int {
	if err == nil {
		return StatusSuccess
	}
	return getErrorInfo(err).Status
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing the user can do.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
