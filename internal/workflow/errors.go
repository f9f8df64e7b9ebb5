package workflow

import (
	"errors"
	"fmt"
)

// ValidationError is a locally detected, user-correctable input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StageError reports an operation attempted from the wrong stage.
type StageError struct {
	Op      string
	Current Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s not allowed in stage %s", e.Op, e.Current)
}

// TranscriptError carries the recognizer's error code.
type TranscriptError struct {
	Code string
}

func (e *TranscriptError) Error() string {
	return "speech recognition failed: " + e.Code
}

var (
	// ErrPhotoLimit is returned when an add would exceed MaxPhotos.
	ErrPhotoLimit = &ValidationError{Field: "photos", Message: fmt.Sprintf("Maximum %d photos allowed", MaxPhotos)}

	ErrLocationDenied      = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}
