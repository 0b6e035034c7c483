package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned for positions outside [0, Len()).
	ErrIndexOutOfRange = errors.New("scan: position out of range")
	// ErrInvalidState is returned by SetButton for a state outside Off, On, Flash1 and Flash2.
	ErrInvalidState = errors.New("scan: invalid button state")
)

// TransportError wraps a failed exchange. The scan it aborted did not
// decode any input and did not advance the scan counter.
type TransportError struct {
	Scan uint32
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scan: transport failed on scan %d: %v", e.Scan, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
