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

// SubmitVoteRequest is one vote decision presented with the voter's token
type SubmitVoteRequest struct {
	Token string
	model.ItemKey
	VoteValue    string
	VoteReason   string
	DelayMinutes *int
}

// SubmitStore defines the database operations needed to submit a batch vote
type SubmitStore interface {
	db.TokenStore
	db.ActivityStore
	UpsertVote(ctx context.Context, vote db.VoteUpsert) (*db.StoredVote, error)
}

// SubmitVote validates and stores one vote and returns the stored row with refreshed counts.
// A person's first vote in a batch also marks their invite as started; that marker is best effort.
func SubmitVote(
	ctx context.Context,
	store SubmitStore,
	cfg *config.Config,
	logger *zap.Logger,
	req SubmitVoteRequest,
) (*model.SubmitResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, model.Invalid("token", "token is required")
	}
	if err := model.ValidateKey(req.ItemKey); err != nil {
		return nil, err
	}
	if err := model.ValidateBatchVote(req.VoteValue, req.VoteReason, req.DelayMinutes, cfg.Votes.RequireReason); err != nil {
		return nil, err
	}

	token, err := authenticate(ctx, store, cfg, logger, req.Token)
	if err != nil {
		return nil, err
	}

	stored, err := store.UpsertVote(ctx, db.VoteUpsert{
		BatchID:      token.BatchID,
		PersonID:     token.PersonID,
		ItemKey:      req.ItemKey,
		VoteValue:    strings.TrimSpace(req.VoteValue),
		VoteReason:   strings.TrimSpace(req.VoteReason),
		DelayMinutes: req.DelayMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store vote: %w", err)
	}

	logger.Info("Vote stored",
		zap.String("batch_id", token.BatchID),
		zap.String("person_id", token.PersonID),
		zap.String("item", req.ItemKey.String()),
		zap.String("vote", stored.Vote.VoteValue))

	if stored.FirstVote {
		markActivity(ctx, store, logger, token.PersonID, model.InviteStarted)
	}

	return &model.SubmitResult{
		Vote:   stored.Vote,
		Status: stored.Status,
		Counts: stored.Counts,
	}, nil
}

// markActivity advances the invite marker. Failures are logged and never returned.
func markActivity(ctx context.Context, store db.ActivityStore, logger *zap.Logger, personID, status string) {
	if err := store.MarkPersonActivity(ctx, personID, status); err != nil {
		logger.Warn("Failed to mark person activity",
			zap.String("person_id", personID),
			zap.String("status", status),
			zap.Error(err))
	}
}
