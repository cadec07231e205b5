package fhir

import (
	"errors"
	"fmt"
)

var (
	ErrMissingID   = errors.New("server response carried no resource id")
	ErrNotAccepted = errors.New("server rejected the resource")
)

// SubmissionError reports a non-success response to a create request.
type SubmissionError struct {
	Status      int
	Diagnostics string
}

func (e *SubmissionError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("submit ServiceRequest: HTTP %d", e.Status)
	}
	return fmt.Sprintf("submit ServiceRequest: HTTP %d: %s", e.Status, e.Diagnostics)
}

func (e *SubmissionError) Unwrap() error {
	return ErrNotAccepted
}
