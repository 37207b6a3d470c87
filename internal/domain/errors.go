package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound      = errors.New("domain: not found")
	ErrConflict      = errors.New("domain: conflict")
	ErrTaskNotFound  = errors.New("domain: task not found in column")
	ErrUnknownColumn = errors.New("domain: unknown column")
	ErrEmptyTitle    = errors.New("domain: task title is empty")
	ErrNotEditing    = errors.New("domain: task is not being edited")
	ErrInvalidDrag   = errors.New("domain: invalid drag payload")
	ErrGateway       = errors.New("domain: task gateway failure")
)
