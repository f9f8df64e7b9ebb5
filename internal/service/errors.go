package service

import (
	"errors"

	"github.com/civicseva/civic-complaints/internal/persistence"
	"github.com/civicseva/civic-complaints/internal/workflow"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// readFailure maps a failed store read: missing rows become NOT_FOUND,
// everything else a retryable SERVICE_UNAVAILABLE.
func readFailure(resource, message string, err error) error {
	if persistence.IsNoRows(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewUnavailable(message, err)
}

// workflowFailure converts local submission errors into validation errors.
func workflowFailure(err error) error {
	var validation *workflow.ValidationError
	if errors.As(err, &validation) {
		return apperrors.NewValidationError(validation.Message, map[string]any{"field": validation.Field})
	}
	var transcript *workflow.TranscriptError
	if errors.As(err, &transcript) {
		return apperrors.NewValidationError(transcript.Error(), map[string]any{"field": "transcript", "code": transcript.Code})
	}
	if errors.Is(err, workflow.ErrLocationDenied) || errors.Is(err, workflow.ErrLocationUnavailable) {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "location"})
	}
	var stage *workflow.StageError
	if errors.As(err, &stage) {
		return apperrors.NewConflict(stage.Error(), map[string]any{"stage": stage.Current.String()})
	}
	return apperrors.NewInternalError(err)
}
