package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

func assignmentStore() *mockStore {
	store := newMockStore()
	store.people["p1"] = &db.Person{ID: "p1", DisplayName: "Jane"}
	store.assignments["a1"] = &model.Assignment{ID: "a1", CampaignID: "c1", PersonID: "p1", JobID: "J1", Status: model.AssignmentPending}
	store.assignments["a2"] = &model.Assignment{ID: "a2", CampaignID: "c2", PersonID: "p1", JobID: "J2", Status: model.AssignmentPending}
	return store
}

func TestListAssignments(t *testing.T) {
	store := assignmentStore()

	assignments, err := ListAssignments(context.Background(), store, zap.NewNop(), "c1", "p1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "a1", assignments[0].ID)

	_, err = ListAssignments(context.Background(), store, zap.NewNop(), "", "p1")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestSubmitAssignment_SetsStatusAndVotedAt(t *testing.T) {
	store := assignmentStore()

	a, err := SubmitAssignment(context.Background(), store, zap.NewNop(), SubmitAssignmentRequest{
		AssignmentID: "a1",
		Vote:         model.AssignmentDelay,
		DelayMinutes: intPtr(30),
		Comment:      " wet ",
	})
	require.NoError(t, err)

	assert.Equal(t, model.AssignmentVoted, a.Status)
	require.NotNil(t, a.VotedAt)
	assert.Equal(t, "wet", a.Comment)
	assert.Equal(t, []string{"p1:started"}, store.activity)
}

func TestSubmitAssignment_Validation(t *testing.T) {
	store := assignmentStore()

	tests := []SubmitAssignmentRequest{
		{Vote: model.AssignmentGo},
		{AssignmentID: "a1", Vote: "maybe"},
		{AssignmentID: "a1", Vote: model.AssignmentDelay},
		{AssignmentID: "a1", Vote: model.AssignmentHold, DelayMinutes: intPtr(10)},
	}
	for _, req := range tests {
		_, err := SubmitAssignment(context.Background(), store, zap.NewNop(), req)
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr), "request %+v", req)
	}
	assert.Equal(t, model.AssignmentPending, store.assignments["a1"].Status)
}

func TestSubmitAssignment_UnknownID(t *testing.T) {
	store := assignmentStore()

	_, err := SubmitAssignment(context.Background(), store, zap.NewNop(), SubmitAssignmentRequest{AssignmentID: "zzz", Vote: model.AssignmentGo})

	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, store.activity)
}

func TestCompleteAssignments(t *testing.T) {
	store := assignmentStore()

	require.NoError(t, CompleteAssignments(context.Background(), store, zap.NewNop(), "p1"))
	assert.Equal(t, []string{"p1:completed"}, store.activity)

	err := CompleteAssignments(context.Background(), store, zap.NewNop(), "ghost")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Message, "unknown person")

	store.activityErr = errors.New("write failed")
	assert.Error(t, CompleteAssignments(context.Background(), store, zap.NewNop(), "p1"))
}

func TestGetJobWeather(t *testing.T) {
	store := newMockStore()
	store.weather["J1|2025-06-02"] = &model.JobWeather{
		JobID: "J1",
		Hourly: []model.HourlyEntry{
			{Time: "08:00", RainChance: 20},
			{Time: "09:00", RainChance: 70},
		},
	}

	w, err := GetJobWeather(context.Background(), store, zap.NewNop(), "J1", "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, w.WorstHour)
	assert.Equal(t, "09:00", w.WorstHour.Time)

	_, err = GetJobWeather(context.Background(), store, zap.NewNop(), "J9", "2025-06-02")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = GetJobWeather(context.Background(), store, zap.NewNop(), "J1", "June 2")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}
