package analysis

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNotFinished       = errors.New("analysis not finished")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	ErrorCodeMediaMissing = "MEDIA_MISSING"
	ErrorCodeExtractor    = "EXTRACTOR_ERROR"
	ErrorCodeInsight      = "INSIGHT_ERROR"
	ErrorCodeStorage      = "STORAGE_ERROR"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)
