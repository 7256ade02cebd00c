package predictor

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotTrained is returned when prediction is requested without a
	// trained model.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUnknownCategory matches any *UnknownCategoryError via errors.Is.
	ErrUnknownCategory = errors.New("unknown category")
)

// UnknownCategoryError reports a categorical value absent from the
// training-time vocabulary.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q: not seen during training", e.Column, e.Value)
}

// Is lets errors.Is(err, ErrUnknownCategory) match.
func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}
