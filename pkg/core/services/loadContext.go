package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/normalize"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// ContextStore defines the database operations needed to load a voting context
type ContextStore interface {
	db.TokenStore
	GetContextRows(ctx context.Context, batchID, personID string) (*db.RawContext, error)
}

// LoadContext returns the full voting context for a token. Safe to call repeatedly.
func LoadContext(
	ctx context.Context,
	store ContextStore,
	cfg *config.Config,
	logger *zap.Logger,
	rawToken string,
) (*model.VotingContext, error) {
	token, err := authenticate(ctx, store, cfg, logger, rawToken)
	if err != nil {
		return nil, err
	}

	raw, err := store.GetContextRows(ctx, token.BatchID, token.PersonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load context rows: %w", err)
	}

	if len(raw.Items) == 0 {
		return nil, db.NotFound("no context for token")
	}

	items := normalize.Items(raw.Items, logger)
	if len(items) == 0 {
		logger.Warn("Every item row was missing an identity field",
			zap.String("batch_id", token.BatchID),
			zap.Int("rows", len(raw.Items)))
		return nil, db.NotFound("no context for token")
	}

	normalize.Sort(items)
	votes := normalize.Votes(items, raw.Votes, logger)
	ordered := normalize.Merge(items, votes)
	counts := normalize.Counts(raw.Counts, items, votes)

	logger.Debug("Context loaded",
		zap.String("batch_id", token.BatchID),
		zap.String("person_id", token.PersonID),
		zap.Int("items", len(items)),
		zap.Int("voted", counts.Voted))

	return &model.VotingContext{
		Voter: voterOf(token),
		Token: model.TokenWindow{
			ExpiresAt:     token.ExpiresAt,
			FirstViewedAt: token.FirstViewedAt,
		},
		Batch: model.Batch{
			ID:        raw.Batch.ID,
			StartDate: raw.Batch.StartDate,
			EndDate:   raw.Batch.EndDate,
			Status:    raw.Batch.Status,
		},
		Items:  items,
		Votes:  ordered,
		Counts: counts,
	}, nil
}
