package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesSentinels(t *testing.T) {
	inner := errors.New("Stale Days should start from 1.")
	err := fmt.Errorf("settings: %w", NewValidationError(inner, map[string]string{"stale_days": "must be >= 1"}))

	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, inner)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "must be >= 1", verr.Details["stale_days"])
	require.Contains(t, err.Error(), "stale_days: must be >= 1")
}
