package workflow

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrEmptyCandidate    = errors.New("adapter returned an empty candidate")
	ErrEmptyResourceID   = errors.New("submitter returned no resource identifier")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrNoSource          = errors.New("no source document or text")
	ErrRuntime           = errors.New("incomplete workflow runtime")
	ErrMissingState      = errors.New("missing workflow state")
)
