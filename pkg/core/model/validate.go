package model

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a client-side input error. It is raised before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateBatchVote checks a batch-flow vote decision.
// Delay votes need positive minutes, other votes must not carry minutes.
func ValidateBatchVote(value, reason string, delayMinutes *int, requireReason bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return Invalid("voteValue", "voteValue is required")
	}
	if !slices.Contains(BatchVoteValues, value) {
		return Invalid("voteValue", "voteValue must be one of: %s", strings.Join(BatchVoteValues, ", "))
	}
	if err := validateDelay(value, delayMinutes); err != nil {
		return err
	}
	if requireReason && strings.TrimSpace(reason) == "" {
		return Invalid("voteReason", "a reason is required")
	}
	return nil
}

// ValidateAssignmentVote checks an assignment-flow vote decision
func ValidateAssignmentVote(vote string, delayMinutes *int) error {
	vote = strings.TrimSpace(vote)
	if vote == "" {
		return Invalid("vote", "vote is required")
	}
	if !slices.Contains(AssignmentVoteValues, vote) {
		return Invalid("vote", "vote must be one of: %s", strings.Join(AssignmentVoteValues, ", "))
	}
	return validateDelay(vote, delayMinutes)
}

func validateDelay(value string, delayMinutes *int) error {
	if IsDelayVote(value) {
		if delayMinutes == nil || *delayMinutes <= 0 {
			return Invalid("delayMinutes", "delayMinutes must be a positive number for a delay vote")
		}
		return nil
	}
	if delayMinutes != nil {
		return Invalid("delayMinutes", "delayMinutes is only allowed on a delay vote")
	}
	return nil
}

// ValidateKey checks that every identity field is present
func ValidateKey(key ItemKey) error {
	switch {
	case strings.TrimSpace(key.InternalJobID) == "":
		return Invalid("internalJobId", "internalJobId is required")
	case strings.TrimSpace(key.ForecastDate) == "":
		return Invalid("forecastDate", "forecastDate is required")
	case strings.TrimSpace(key.LensID) == "":
		return Invalid("lensId", "lensId is required")
	}
	return nil
}
