package db

import (
	"context"
	"time"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// TokenStore defines the token lookup operations
type TokenStore interface {
	GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error)
	MarkTokenViewed(ctx context.Context, tokenID string) error
}

// ActivityStore defines the best-effort person activity marker
type ActivityStore interface {
	MarkPersonActivity(ctx context.Context, personID string, status string) error
}

// Database defines the interface for all backend operations.
// postgres.DB implements this interface.
type Database interface {
	TokenStore
	ActivityStore

	GetContextRows(ctx context.Context, batchID, personID string) (*RawContext, error)
	UpsertVote(ctx context.Context, vote VoteUpsert) (*StoredVote, error)
	GetJobVotes(ctx context.Context, batchID string, key model.ItemKey) ([]model.JobVote, error)
	GetJobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error)

	ListAssignments(ctx context.Context, campaignID, personID string) ([]model.Assignment, error)
	UpdateAssignment(ctx context.Context, update AssignmentUpdate) (*model.Assignment, error)

	GetPerson(ctx context.Context, personID string) (*Person, error)
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	InsertBatch(ctx context.Context, batch *Batch) error
	InsertToken(ctx context.Context, token *Token) error
	RevokeToken(ctx context.Context, tokenID string, at time.Time) error
	ListBatchVotes(ctx context.Context, batchID string) ([]BatchVote, error)
}
