package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Fatal errors abort the whole run: they indicate a programming or
// environment defect, never a data-quality issue.

type scheduleOverflow struct {
	message string
}

func NewScheduleOverflowError(msg string) error {
	return &scheduleOverflow{message: msg}
}

func (s scheduleOverflow) Error() string {
	return s.message
}

type idCollision struct {
	message string
}

func NewIDCollisionError(msg string) error {
	return &idCollision{message: msg}
}

func (c idCollision) Error() string {
	return c.message
}

type corruptReviewLog struct {
	message string
}

func NewCorruptReviewLogError(msg string) error {
	return &corruptReviewLog{message: msg}
}

func (c corruptReviewLog) Error() string {
	return c.message
}

func IsFatal(err error) bool {
	switch errors.Cause(err).(type) {
	case *scheduleOverflow, *idCollision, *corruptReviewLog:
		return true
	}
	return false
}
