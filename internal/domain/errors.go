package domain

import "errors"

var (
	ErrRecordNotFound            = errors.New("record not found")
	ErrUnknownAction             = errors.New("unknown action token")
	ErrEmptyQuery                = errors.New("empty query")
	ErrNoResult                  = errors.New("no job result within timeout")
	ErrClassificationUnavailable = errors.New("classification unavailable")
)
