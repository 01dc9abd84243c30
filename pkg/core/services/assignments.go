package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// AssignmentStore defines the database operations needed by the assignment flow
type AssignmentStore interface {
	db.ActivityStore
	ListAssignments(ctx context.Context, campaignID, personID string) ([]model.Assignment, error)
	UpdateAssignment(ctx context.Context, update db.AssignmentUpdate) (*model.Assignment, error)
	GetPerson(ctx context.Context, personID string) (*db.Person, error)
}

// SubmitAssignmentRequest is one go/delay/hold decision on an assignment
type SubmitAssignmentRequest struct {
	AssignmentID string
	Vote         string
	DelayMinutes *int
	Comment      string
}

// ListAssignments returns a person's assignments in a campaign with their job metadata
func ListAssignments(ctx context.Context, store AssignmentStore, logger *zap.Logger, campaignID, personID string) ([]model.Assignment, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, model.Invalid("campaignId", "campaignId is required")
	}
	if strings.TrimSpace(personID) == "" {
		return nil, model.Invalid("personId", "personId is required")
	}

	assignments, err := store.ListAssignments(ctx, campaignID, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	logger.Debug("Listed assignments",
		zap.String("campaign_id", campaignID),
		zap.String("person_id", personID),
		zap.Int("count", len(assignments)))

	return assignments, nil
}

// SubmitAssignment records a vote on one assignment. The store sets status and voted_at in the same write.
func SubmitAssignment(ctx context.Context, store AssignmentStore, logger *zap.Logger, req SubmitAssignmentRequest) (*model.Assignment, error) {
	if strings.TrimSpace(req.AssignmentID) == "" {
		return nil, model.Invalid("assignmentId", "assignmentId is required")
	}
	if err := model.ValidateAssignmentVote(req.Vote, req.DelayMinutes); err != nil {
		return nil, err
	}

	assignment, err := store.UpdateAssignment(ctx, db.AssignmentUpdate{
		ID:           req.AssignmentID,
		Vote:         strings.TrimSpace(req.Vote),
		DelayMinutes: req.DelayMinutes,
		Comment:      strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	logger.Info("Assignment voted",
		zap.String("assignment_id", assignment.ID),
		zap.String("person_id", assignment.PersonID),
		zap.String("vote", assignment.Vote))

	markActivity(ctx, store, logger, assignment.PersonID, model.InviteStarted)

	return assignment, nil
}

// CompleteAssignments marks a person as having finished voting
func CompleteAssignments(ctx context.Context, store AssignmentStore, logger *zap.Logger, personID string) error {
	if strings.TrimSpace(personID) == "" {
		return model.Invalid("personId", "personId is required")
	}

	if _, err := store.GetPerson(ctx, personID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Invalid("personId", "unknown person %s", personID)
		}
		return fmt.Errorf("failed to get person: %w", err)
	}

	if err := store.MarkPersonActivity(ctx, personID, model.InviteCompleted); err != nil {
		return fmt.Errorf("failed to mark person completed: %w", err)
	}

	logger.Info("Person completed voting", zap.String("person_id", personID))
	return nil
}
