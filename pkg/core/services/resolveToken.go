package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/tokens"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// ResolveToken validates a raw token against a batch and returns the voter behind it.
// The first successful resolution stamps the token as viewed.
func ResolveToken(
	ctx context.Context,
	store db.TokenStore,
	cfg *config.Config,
	logger *zap.Logger,
	batchID string,
	rawToken string,
) (*model.Voter, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, model.Invalid("campaignId", "campaignId is required")
	}

	token, err := authenticate(ctx, store, cfg, logger, rawToken)
	if err != nil {
		return nil, err
	}

	if token.BatchID != batchID {
		logger.Warn("Token presented for another batch",
			zap.String("token_id", token.ID),
			zap.String("requested_batch", batchID))
		return nil, db.ErrForbidden
	}

	voter := voterOf(token)
	logger.Info("Token resolved",
		zap.String("token_id", token.ID),
		zap.String("person_id", voter.PersonID))

	return &voter, nil
}

// authenticate hashes the raw token, loads its record and checks its window.
// An expired token is rejected whatever its revocation state.
func authenticate(ctx context.Context, store db.TokenStore, cfg *config.Config, logger *zap.Logger, rawToken string) (*db.Token, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, model.Invalid("token", "token is required")
	}

	token, err := store.GetTokenByHash(ctx, tokens.LookupKey(rawToken, cfg.Tokens.Salt))
	if errors.Is(err, db.ErrNotFound) {
		logger.Debug("Unknown token")
		return nil, db.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if err := checkWindow(token, now()); err != nil {
		logger.Debug("Token rejected", zap.String("token_id", token.ID), zap.Error(err))
		return nil, err
	}

	if token.FirstViewedAt == nil {
		if err := store.MarkTokenViewed(ctx, token.ID); err != nil {
			logger.Warn("Failed to mark token viewed", zap.String("token_id", token.ID), zap.Error(err))
		}
	}

	return token, nil
}

func checkWindow(token *db.Token, at time.Time) error {
	if !token.ExpiresAt.After(at) {
		return fmt.Errorf("token expired at %s: %w", token.ExpiresAt.Format(time.RFC3339), db.ErrUnauthorized)
	}
	if token.RevokedAt != nil {
		return fmt.Errorf("token revoked: %w", db.ErrUnauthorized)
	}
	return nil
}

func voterOf(token *db.Token) model.Voter {
	return model.Voter{
		PersonID:    token.PersonID,
		DisplayName: token.Person.DisplayName,
		Role:        model.Role(token.Person.Role),
	}
}
