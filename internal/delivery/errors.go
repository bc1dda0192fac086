package delivery

import "fmt"

// DeliveryRejectedError is a non-2xx answer from a download route. It is
// never retried.
type DeliveryRejectedError struct {
	StatusCode int
	Message    string
	Secure     bool
}

func (e *DeliveryRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("download rejected: %s", e.Message)
	}
	return fmt.Sprintf("download rejected: HTTP %d", e.StatusCode)
}

// DeliveryExhaustedError reports that every attempt failed on transport.
type DeliveryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *DeliveryExhaustedError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DeliveryExhaustedError) Unwrap() error { return e.Err }
