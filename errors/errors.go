package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidPayload       = fmt.Errorf("invalid notification payload")
	ErrUnknownEventKind     = fmt.Errorf("unknown event kind")
	ErrUnsupportedVersion   = fmt.Errorf("unsupported payload version")
	ErrTokenInvalid         = fmt.Errorf("invalid or expired token")
	ErrMissingToken         = fmt.Errorf("authorization token is missing")
	ErrStreamingUnsupported = fmt.Errorf("response writer does not support streaming")
)
