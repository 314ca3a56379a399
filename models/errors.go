package models

import (
	"fmt"

	"github.com/aouyang1/go-rollcast/errkind"
)

var (
	ErrNoOptions          = fmt.Errorf("no initialized model options, %w", errkind.ErrConfiguration)
	ErrTargetLenMismatch  = fmt.Errorf("target length does not match target rows, %w", errkind.ErrValue)
	ErrNoTrainingMatrix   = fmt.Errorf("no training matrix, %w", errkind.ErrValue)
	ErrNoTargetMatrix     = fmt.Errorf("no target matrix, %w", errkind.ErrValue)
	ErrNoDesignMatrix     = fmt.Errorf("no design matrix for inference, %w", errkind.ErrValue)
	ErrFeatureLenMismatch = fmt.Errorf("number of features does not match number of model coefficients, %w", errkind.ErrValue)
	ErrSingularMatrix     = fmt.Errorf("design matrix is rank deficient, %w", errkind.ErrValue)

	ErrModelNotFitted      = fmt.Errorf("model has not been fitted, %w", errkind.ErrNotFitted)
	ErrUnknownStrategy     = fmt.Errorf("unknown naive strategy, %w", errkind.ErrConfiguration)
	ErrNegativeWindow      = fmt.Errorf("window length must be non-negative, %w", errkind.ErrConfiguration)
	ErrInsufficientData    = fmt.Errorf("not enough observations, %w", errkind.ErrValue)
	ErrStepNotFitted       = fmt.Errorf("horizon step was not fitted, %w", errkind.ErrConfiguration)
	ErrNoMembers           = fmt.Errorf("ensemble has no members, %w", errkind.ErrConfiguration)
	ErrMemberVariates      = fmt.Errorf("ensemble members must accept univariate series, %w", errkind.ErrConfiguration)
	ErrWeightsLenMismatch  = fmt.Errorf("number of weights does not match number of members, %w", errkind.ErrConfiguration)
	ErrNonPositiveValue    = fmt.Errorf("log transform requires positive values, %w", errkind.ErrValue)
	ErrInvalidOutlierRange = fmt.Errorf("outlier percentiles must satisfy 0 <= lower < upper <= 1, %w", errkind.ErrConfiguration)
)
