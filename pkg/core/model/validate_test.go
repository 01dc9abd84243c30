package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestValidateBatchVote(t *testing.T) {
	tests := []struct {
		name          string
		value         string
		reason        string
		delay         *int
		requireReason bool
		wantField     string
	}{
		{name: "dispatch anyway", value: VoteDispatchAnyway},
		{name: "delay with minutes", value: VoteDelay, delay: intPtr(30)},
		{name: "missing value", value: "  ", wantField: "voteValue"},
		{name: "unknown value", value: "Maybe", wantField: "voteValue"},
		{name: "delay without minutes", value: VoteDelay, wantField: "delayMinutes"},
		{name: "delay with zero minutes", value: VoteDelay, delay: intPtr(0), wantField: "delayMinutes"},
		{name: "minutes on non-delay vote", value: VoteCancel, delay: intPtr(15), wantField: "delayMinutes"},
		{name: "reason required and blank", value: VoteCancel, reason: "   ", requireReason: true, wantField: "voteReason"},
		{name: "reason required and present", value: VoteCancel, reason: "too risky", requireReason: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchVote(tt.value, tt.reason, tt.delay, tt.requireReason)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestValidateAssignmentVote(t *testing.T) {
	assert.NoError(t, ValidateAssignmentVote(AssignmentGo, nil))
	assert.NoError(t, ValidateAssignmentVote(AssignmentHold, nil))
	assert.NoError(t, ValidateAssignmentVote(AssignmentDelay, intPtr(60)))

	assert.Error(t, ValidateAssignmentVote("", nil))
	assert.Error(t, ValidateAssignmentVote("Dispatch anyway", nil))
	assert.Error(t, ValidateAssignmentVote(AssignmentDelay, nil))
	assert.Error(t, ValidateAssignmentVote(AssignmentGo, intPtr(10)))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey(ItemKey{InternalJobID: "J1", ForecastDate: "2025-06-01", LensID: "L1"}))

	err := ValidateKey(ItemKey{InternalJobID: "J1", LensID: "L1"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "forecastDate", vErr.Field)
}

func TestIsDelayVote(t *testing.T) {
	assert.True(t, IsDelayVote(VoteDelay))
	assert.True(t, IsDelayVote(AssignmentDelay))
	assert.True(t, IsDelayVote("Delay by 2 hours"))
	assert.False(t, IsDelayVote(VoteCancel))
	assert.False(t, IsDelayVote(AssignmentHold))
}

func TestRiskOrdinal(t *testing.T) {
	assert.Equal(t, 0, RiskOrdinal("RED"))
	assert.Equal(t, 0, RiskOrdinal("high"))
	assert.Equal(t, 1, RiskOrdinal(" Yellow "))
	assert.Equal(t, 2, RiskOrdinal("low"))
	assert.Equal(t, 3, RiskOrdinal(""))
}
