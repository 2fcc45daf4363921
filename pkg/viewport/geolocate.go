package viewport

import (
	"context"
	"errors"
	"fmt"
)

// PositionFailureCause classifies why a geolocation request failed.
// Every cause is recoverable; the controller falls back to the default
// center and surfaces a user-facing advisory.
type PositionFailureCause int

const (
	CauseUnknown PositionFailureCause = iota
	CausePermissionDenied
	CausePositionUnavailable
	CauseTimeout
)

func (c PositionFailureCause) String() string {
	switch c {
	case CausePermissionDenied:
		return "permission-denied"
	case CausePositionUnavailable:
		return "position-unavailable"
	case CauseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PositionError is a classified geolocation failure.
type PositionError struct {
	Cause PositionFailureCause
	Inner error
}

func (e *PositionError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("geolocation failed: %s", e.Cause)
	}

	return fmt.Sprintf("geolocation failed (%s): %s", e.Cause, e.Inner)
}

func (e *PositionError) Unwrap() error {
	return e.Inner
}

// ClassifyPositionError maps an arbitrary geolocation error onto a
// failure cause. Context deadline errors count as timeouts.
func ClassifyPositionError(err error) PositionFailureCause {
	var positionError *PositionError
	if errors.As(err, &positionError) {
		return positionError.Cause
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	return CauseUnknown
}

// Advisory returns the user-facing message for a failure cause. The
// wording distinguishes a denied permission from a timed-out request.
func Advisory(cause PositionFailureCause) string {
	switch cause {
	case CausePermissionDenied:
		return "Location access was denied. Showing the default area instead."
	case CausePositionUnavailable:
		return "Your position could not be determined. Showing the default area instead."
	case CauseTimeout:
		return "Locating you took too long. Showing the default area instead."
	default:
		return "Something went wrong while locating you. Showing the default area instead."
	}
}
