package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/apigate/pkg/toolerr"
)

// APIError is a non-2xx upstream response.
type APIError struct {
	API    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API Error: %d - %s", e.API, e.Status, e.Body)
}

// Kind classifies the error as an upstream failure.
func (e *APIError) Kind() toolerr.Kind {
	return toolerr.KindUpstream
}

// NetworkError is a transport failure reaching the upstream.
type NetworkError struct {
	API    string
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Cancelled() {
		return fmt.Sprintf("%s request cancelled", e.API)
	}
	return fmt.Sprintf("%s network error: %v", e.API, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Cancelled reports whether the caller cancelled the request.
func (e *NetworkError) Cancelled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// Kind is cancelled for caller cancellation and network otherwise,
// including deadline expiry.
func (e *NetworkError) Kind() toolerr.Kind {
	if e.Cancelled() {
		return toolerr.KindCancelled
	}
	return toolerr.KindNetwork
}

// StatusOf returns the upstream status of an APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
