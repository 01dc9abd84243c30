package api

import "github.com/jakechorley/dispatch-vote/pkg/core/model"

// Request bodies. The same types are used by the portal client.

type ContextRequest struct {
	Token string `json:"token" validate:"required"`
}

type SubmitRequest struct {
	Token         string `json:"token" validate:"required"`
	InternalJobID string `json:"internalJobId" validate:"required"`
	ForecastDate  string `json:"forecastDate" validate:"required"`
	LensID        string `json:"lensId" validate:"required"`
	VoteValue     string `json:"voteValue" validate:"required"`
	VoteReason    string `json:"voteReason,omitempty"`
	DelayMinutes  *int   `json:"delayMinutes,omitempty"`
}

type JobVotesRequest struct {
	Token         string `json:"token" validate:"required"`
	InternalJobID string `json:"internalJobId" validate:"required"`
	ForecastDate  string `json:"forecastDate" validate:"required"`
	LensID        string `json:"lensId" validate:"required"`
}

type SubmitAssignmentRequest struct {
	AssignmentID string `json:"assignmentId" validate:"required"`
	Vote         string `json:"vote" validate:"required"`
	DelayMinutes *int   `json:"delayMinutes,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

type CompleteAssignmentsRequest struct {
	PersonID string `json:"personId" validate:"required"`
}

type ResolveRequest struct {
	CampaignID string `json:"campaignId" validate:"required"`
	Token      string `json:"token" validate:"required"`
}

// Response envelopes

type ContextResponse struct {
	Context *model.VotingContext `json:"context"`
}

type SubmitResponse struct {
	Result *model.SubmitResult `json:"result"`
}

type JobVotesResponse struct {
	Votes []model.JobVote `json:"votes"`
}

type JobWeatherResponse struct {
	Weather *model.JobWeather `json:"weather"`
}

type AssignmentsResponse struct {
	Assignments []model.Assignment `json:"assignments"`
}

type AssignmentResponse struct {
	Assignment *model.Assignment `json:"assignment"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string `json:"message"`
}
