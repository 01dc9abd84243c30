package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// JobVotesStore defines the database operations needed to list other voters' decisions
type JobVotesStore interface {
	db.TokenStore
	GetJobVotes(ctx context.Context, batchID string, key model.ItemKey) ([]model.JobVote, error)
}

// GetJobVotes lists every vote cast on an item in the token's batch
func GetJobVotes(ctx context.Context, store JobVotesStore, cfg *config.Config, logger *zap.Logger, rawToken string, key model.ItemKey) ([]model.JobVote, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, model.Invalid("token", "token is required")
	}
	if err := model.ValidateKey(key); err != nil {
		return nil, err
	}

	token, err := authenticate(ctx, store, cfg, logger, rawToken)
	if err != nil {
		return nil, err
	}

	votes, err := store.GetJobVotes(ctx, token.BatchID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get job votes: %w", err)
	}

	return votes, nil
}
