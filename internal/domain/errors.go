package domain

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	ErrDecisionNotFound = errors.New("overwrite decision not found or expired")
)
