package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrUnknownEvent   = fmt.Errorf("unknown event kind")
	ErrMalformedEvent = fmt.Errorf("malformed event payload")
)
