package models

import "errors"

// Error classes of a pipeline run. Callers wrap the underlying cause with
// fmt.Errorf("...: %w: %w", ErrX, err) and test with errors.Is.
var (
	ErrConfig    = errors.New("invalid configuration")
	ErrDirectory = errors.New("directory error")
	ErrParse     = errors.New("parse error")
	ErrQuery     = errors.New("query error")
	ErrIO        = errors.New("io error")
)
