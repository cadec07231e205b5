package drafting

import "errors"

var (
	ErrInvalidStage  = errors.New("stage must be generate or fix")
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNotResource   = errors.New("response is not a ServiceRequest")
)
