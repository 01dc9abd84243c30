package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleCrew      Role = "crew"
	RoleEstimator Role = "estimator"
)

func (r Role) IsValid() bool {
	return r == RoleCrew || r == RoleEstimator
}

// Invite status markers kept on the person record
const (
	InviteNotStarted = "not-started"
	InviteStarted    = "started"
	InviteCompleted  = "completed"
)

// Batch vote vocabulary
const (
	VoteDispatchAnyway   = "Dispatch anyway"
	VoteCancel           = "Cancel"
	VoteDelay            = "Delay"
	VoteDecideAtDispatch = "Decide at dispatch"
)

// BatchVoteValues lists the accepted batch vote values in display order
var BatchVoteValues = []string{VoteDispatchAnyway, VoteCancel, VoteDelay, VoteDecideAtDispatch}

// Assignment vote vocabulary
const (
	AssignmentGo    = "go"
	AssignmentDelay = "delay"
	AssignmentHold  = "hold"
)

// AssignmentVoteValues lists the accepted assignment vote values
var AssignmentVoteValues = []string{AssignmentGo, AssignmentDelay, AssignmentHold}

// Assignment statuses. pending -> voted only.
const (
	AssignmentPending = "pending"
	AssignmentVoted   = "voted"
)

// IsDelayVote reports whether a vote value (from either vocabulary) implies a delay
func IsDelayVote(value string) bool {
	v := strings.TrimSpace(value)
	return v == VoteDelay || v == AssignmentDelay || strings.HasPrefix(strings.ToLower(v), "delay by")
}

// ItemKey is the composite identity of a vote item
type ItemKey struct {
	InternalJobID string `json:"internalJobId"`
	ForecastDate  string `json:"forecastDate"`
	LensID        string `json:"lensId"`
}

func (k ItemKey) String() string {
	return k.InternalJobID + "|" + k.ForecastDate + "|" + k.LensID
}

// IsZero reports whether any identity field is missing
func (k ItemKey) IsZero() bool {
	return k.InternalJobID == "" || k.ForecastDate == "" || k.LensID == ""
}

// RiskOrdinal maps a risk label to its sort rank: red/high=0, yellow/medium=1, green/low=2, anything else=3
func RiskOrdinal(risk string) int {
	switch strings.ToLower(strings.TrimSpace(risk)) {
	case "red", "high":
		return 0
	case "yellow", "medium":
		return 1
	case "green", "low":
		return 2
	default:
		return 3
	}
}

// Vote is one voter's decision on one item
type Vote struct {
	ItemKey
	VoteValue    string     `json:"voteValue"`
	VoteReason   string     `json:"voteReason,omitempty"`
	DelayMinutes *int       `json:"delayMinutes,omitempty"`
	VotedAt      *time.Time `json:"votedAt,omitempty"`
}

// Complete reports whether the vote carries a value
func (v *Vote) Complete() bool {
	return v != nil && strings.TrimSpace(v.VoteValue) != ""
}

// VoteItem is one job/forecast-date/lens combination eligible for voting
type VoteItem struct {
	ItemKey
	PropertyName      string          `json:"propertyName"`
	ServiceName       string          `json:"serviceName"`
	RouteStartTime    string          `json:"routeStartTime,omitempty"`
	RouteEndTime      string          `json:"routeEndTime,omitempty"`
	RiskLevel         string          `json:"riskLevel"`
	MaxRainChance     float64         `json:"maxRainChance"`
	MaxRainInches     float64         `json:"maxRainInches"`
	HourlyWeather     json.RawMessage `json:"hourlyWeather,omitempty"`
	EstimatorInitials string          `json:"estimatorInitials,omitempty"`
	ExistingVote      *Vote           `json:"existingVote,omitempty"`
}

// Voter identifies the person behind a token
type Voter struct {
	PersonID    string `json:"personId"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// TokenWindow is the validity window of a voting token
type TokenWindow struct {
	ExpiresAt     time.Time  `json:"expiresAt"`
	FirstViewedAt *time.Time `json:"firstViewedAt,omitempty"`
}

// Batch is the voting batch (campaign) metadata
type Batch struct {
	ID        string `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
}

// Counts are the aggregate item counts of a voting context
type Counts struct {
	Total     int `json:"total"`
	Voted     int `json:"voted"`
	Remaining int `json:"remaining"`
}

// VotingContext is the envelope for one voter's session
type VotingContext struct {
	Voter  Voter       `json:"voter"`
	Token  TokenWindow `json:"token"`
	Batch  Batch       `json:"batch"`
	Items  []VoteItem  `json:"items"`
	Votes  []Vote      `json:"votes"`
	Counts Counts      `json:"counts"`
}

// VoteFor returns the vote recorded for a key, if any
func (c *VotingContext) VoteFor(key ItemKey) *Vote {
	for i := range c.Votes {
		if c.Votes[i].ItemKey == key {
			return &c.Votes[i]
		}
	}
	return nil
}

// SubmitResult is the canonical stored vote plus refreshed counts
type SubmitResult struct {
	Vote   Vote    `json:"vote"`
	Status string  `json:"status"`
	Counts *Counts `json:"counts,omitempty"`
}

// JobVote is one voter's vote on an item, as seen by other voters
type JobVote struct {
	VoterType  string     `json:"voterType"`
	VoterLabel string     `json:"voterLabel"`
	VoteValue  string     `json:"voteValue"`
	VoteReason string     `json:"voteReason,omitempty"`
	VotedAt    *time.Time `json:"votedAt,omitempty"`
}

// Job is the job metadata joined onto assignments
type Job struct {
	ID             string `json:"id"`
	PropertyName   string `json:"propertyName"`
	ServiceName    string `json:"serviceName"`
	ScheduledDate  string `json:"scheduledDate"`
	RouteStartTime string `json:"routeStartTime,omitempty"`
	RouteEndTime   string `json:"routeEndTime,omitempty"`
}

// Assignment is a per-job-per-person record in the simpler assignment flow
type Assignment struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaignId"`
	PersonID     string     `json:"personId"`
	JobID        string     `json:"jobId"`
	Vote         string     `json:"vote,omitempty"`
	DelayMinutes *int       `json:"delayMinutes,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	Status       string     `json:"status"`
	VotedAt      *time.Time `json:"votedAt,omitempty"`
	Job          *Job       `json:"job,omitempty"`
}

// HourlyEntry is one hour of forecast
type HourlyEntry struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Condition   string  `json:"condition"`
	RainChance  float64 `json:"rainChance"`
	RainInches  float64 `json:"rainInches"`
	WindSpeed   float64 `json:"windSpeed"`
}

// JobWeather is the hourly forecast for one job on one date
type JobWeather struct {
	JobID        string        `json:"jobId"`
	ForecastDate string        `json:"forecastDate"`
	DailyHigh    float64       `json:"dailyHigh"`
	DailyLow     float64       `json:"dailyLow"`
	WorstHour    *HourlyEntry  `json:"worstHour,omitempty"`
	Hourly       []HourlyEntry `json:"hourly"`
}
