package service

import (
	"errors"

	"github.com/maheshrc27/reelflow/internal/selection"
)

var (
	ErrSelectionExhausted = selection.ErrSelectionExhausted
	ErrQualityRejected    = errors.New("artifact rejected by quality gate")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrPublishFailure     = errors.New("publish failed")
	ErrNotFound           = errors.New("not found")
	ErrNotConfigured      = errors.New("publisher is not configured")
)
