package pusher

import (
	"errors"
	"fmt"
)

// MissingRequiredFieldError reports a source event lacking a field the
// archive record cannot be built without. It is permanent: the event is
// dead-lettered, never retried.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("required field %s is missing or blank", e.Field)
}

// RecordBuildError wraps any failure to turn a source event into an
// archive record.
type RecordBuildError struct {
	Err error
}

func (e *RecordBuildError) Error() string {
	return fmt.Sprintf("build archive record: %v", e.Err)
}

func (e *RecordBuildError) Unwrap() error { return e.Err }

// CircuitOpenError is returned when the circuit breaker rejects a call
// without attempting the network. It is transient.
type CircuitOpenError struct {
	RetryAfter string
}

func (e *CircuitOpenError) Error() string {
	if e.RetryAfter == "" {
		return "circuit open: delivery suspended"
	}
	return fmt.Sprintf("circuit open: delivery suspended, retry after %s", e.RetryAfter)
}

// DeliveryFailureReason distinguishes why a delivery became permanent.
type DeliveryFailureReason string

// Delivery failure reasons recorded on dead-letter entries.
const (
	ReasonClientError      DeliveryFailureReason = "client_error"
	ReasonAppRejection     DeliveryFailureReason = "application_rejection"
	ReasonRetriesExhausted DeliveryFailureReason = "retries_exhausted"
)

// PermanentDeliveryError means a record can never be placed with the
// archive system as-is and must be dead-lettered.
type PermanentDeliveryError struct {
	Reason   DeliveryFailureReason
	Attempts int
	Err      error
}

func (e *PermanentDeliveryError) Error() string {
	return fmt.Sprintf("permanent delivery failure (%s, %d attempts): %v", e.Reason, e.Attempts, e.Err)
}

func (e *PermanentDeliveryError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is one of the modeled permanent
// failures that route an event to the dead-letter sink.
func IsPermanent(err error) bool {
	var rb *RecordBuildError
	var pd *PermanentDeliveryError
	return errors.As(err, &rb) || errors.As(err, &pd)
}
