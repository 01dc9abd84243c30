package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

var (
	// ErrNotFound is returned when a keyed lookup matches nothing
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for unknown, expired or revoked tokens
	ErrUnauthorized = errors.New("invalid or expired token")
	// ErrForbidden is returned when a valid token is presented for another batch
	ErrForbidden = errors.New("token does not match this batch")
)

type notFoundError struct{ msg string }

func (e notFoundError) Error() string        { return e.msg }
func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound returns an error with a specific message that matches ErrNotFound
func NotFound(format string, args ...any) error {
	return notFoundError{msg: fmt.Sprintf(format, args...)}
}

// Person represents a person record
type Person struct {
	ID             string
	DisplayName    string
	Role           string
	Email          string
	InviteStatus   string
	LastActivityAt *time.Time
}

// Batch represents a voting batch record. Assignments refer to it as their campaign.
type Batch struct {
	ID        string
	StartDate string // 2006-01-02
	EndDate   string // 2006-01-02
	Status    string
	CreatedAt time.Time
}

// Token represents a voting token record. The raw token is never stored.
type Token struct {
	ID            string
	BatchID       string
	PersonID      string
	TokenHash     string
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	FirstViewedAt *time.Time
	CreatedAt     time.Time
	Person        Person
}

// RawContext is everything the backend knows about one voter's batch, before normalization.
// Items and Votes are raw JSON objects whose field names vary between generator versions.
type RawContext struct {
	Batch  Batch
	Items  []map[string]any
	Votes  []map[string]any
	Counts *model.Counts // nil when the backend did not report counts
}

// VoteUpsert is a write of one vote
type VoteUpsert struct {
	BatchID  string
	PersonID string
	model.ItemKey
	VoteValue    string
	VoteReason   string
	DelayMinutes *int
}

// StoredVote is the canonical row written by UpsertVote
type StoredVote struct {
	Vote      model.Vote
	Status    string
	Counts    *model.Counts
	FirstVote bool // true when the person had no votes in the batch before this write
}

// AssignmentUpdate is a write of one assignment vote
type AssignmentUpdate struct {
	ID           string
	Vote         string
	DelayMinutes *int
	Comment      string
}

// BatchVote is one vote row joined with voter and item details, used for exports
type BatchVote struct {
	PersonName   string
	PersonRole   string
	PropertyName string
	model.Vote
}
