package cohort

import "errors"

var (
	// ErrInvalidInput is returned for malformed or out-of-domain arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDataset is returned when a statistic is undefined on no data.
	ErrEmptyDataset = errors.New("empty dataset")
)
