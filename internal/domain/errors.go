package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidText     = errors.New("invalid text")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidColumn   = errors.New("invalid column")
	ErrDuplicateTask   = errors.New("duplicate task id")
)
