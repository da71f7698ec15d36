package client

import "fmt"

// StatusError reports a non-2xx vendor response
type StatusError struct {
	Body   string
	Status int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", ErrHTTPStatus, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", ErrHTTPStatus, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}
