package model

import "errors"

var (
	// ErrMalformedDataset means a required part of the dataset is missing or unreadable.
	ErrMalformedDataset = errors.New("malformed dataset")
	// ErrOutOfRangeReference means a session points at an unknown period or weekday.
	ErrOutOfRangeReference = errors.New("out of range reference")
	// ErrInvalidWeekFlags means a week flag string is not 18 characters of '0'/'1'.
	ErrInvalidWeekFlags = errors.New("invalid week flags")
	// ErrMissingAnchorDate means recurrence expansion was requested without an anchor Monday.
	ErrMissingAnchorDate = errors.New("missing anchor date")
	// ErrOutOfRange means a grid lookup used a row or weekday the grid does not have.
	ErrOutOfRange = errors.New("out of range")
	// ErrSlotConflict means two sessions claim the same cell for overlapping weeks.
	ErrSlotConflict = errors.New("slot conflict")
)
