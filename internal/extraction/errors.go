package extraction

import "errors"

var (
	ErrTooLarge      = errors.New("document exceeds maximum size")
	ErrUnsupported   = errors.New("document must be a PDF, text, or markdown file")
	ErrUnreadablePDF = errors.New("document is not a readable PDF")
	ErrEmptyText     = errors.New("extraction response carried no data")
	ErrService       = errors.New("extraction service failed")
)
