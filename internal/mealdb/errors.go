package mealdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for TheMealDB operations.
var (
	ErrMealNotFound = errors.New("meal not found")
	ErrTimeout      = errors.New("external api timeout")
)

// StatusError reports a non-success HTTP status from TheMealDB.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("external api returned status %d", e.Code)
}
