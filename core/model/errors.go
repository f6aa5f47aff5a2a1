package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds matched with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrPhase      = errors.New("action not allowed in current phase")
	ErrNotFound   = errors.New("not found")
)

// ValidationError reports a rejected value. The targeted state is unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PhaseError reports an action attempted outside the phases that allow it.
type PhaseError struct {
	Action string
	Phase  Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %s", e.Action, e.Phase)
}

func (e *PhaseError) Is(target error) bool { return target == ErrPhase }

// NotFoundError reports an unknown game, team or asset.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
