package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/tokens"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// TokenAdminStore defines the database operations needed to issue and revoke tokens
type TokenAdminStore interface {
	GetPerson(ctx context.Context, personID string) (*db.Person, error)
	GetBatch(ctx context.Context, batchID string) (*db.Batch, error)
	InsertToken(ctx context.Context, token *db.Token) error
	RevokeToken(ctx context.Context, tokenID string, at time.Time) error
}

// Mailer sends plain-text email
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// IssuedToken is a freshly minted voting link. RawToken is shown once and never stored.
type IssuedToken struct {
	TokenID   string
	RawToken  string
	Link      string
	ExpiresAt time.Time
	Person    *db.Person
	Emailed   bool
}

// IssueToken mints a voting token for a person in a batch and, when mailer is non-nil, emails the link
func IssueToken(
	ctx context.Context,
	store TokenAdminStore,
	mailer Mailer,
	cfg *config.Config,
	logger *zap.Logger,
	batchID string,
	personID string,
) (*IssuedToken, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, model.Invalid("batchId", "batch id is required")
	}
	if strings.TrimSpace(personID) == "" {
		return nil, model.Invalid("personId", "person id is required")
	}

	batch, err := store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	person, err := store.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	if mailer != nil && person.Email == "" {
		return nil, model.Invalid("email", "%s has no email address", person.DisplayName)
	}

	raw, err := tokens.Generate()
	if err != nil {
		return nil, err
	}

	issuedAt := now()
	record := &db.Token{
		ID:        uuid.New().String(),
		BatchID:   batch.ID,
		PersonID:  person.ID,
		TokenHash: tokens.LookupKey(raw, cfg.Tokens.Salt),
		ExpiresAt: issuedAt.Add(time.Duration(cfg.Tokens.TTLHours) * time.Hour),
		CreatedAt: issuedAt,
	}
	if err := store.InsertToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to insert token: %w", err)
	}

	link, err := VotingLink(cfg.Server.PublicBaseURL, batch.ID, raw)
	if err != nil {
		return nil, err
	}

	logger.Info("Token issued",
		zap.String("token_id", record.ID),
		zap.String("batch_id", batch.ID),
		zap.String("person_id", person.ID),
		zap.Time("expires_at", record.ExpiresAt))

	issued := &IssuedToken{
		TokenID:   record.ID,
		RawToken:  raw,
		Link:      link,
		ExpiresAt: record.ExpiresAt,
		Person:    person,
	}

	if mailer != nil {
		subject, body := linkEmail(person, batch, link, record.ExpiresAt)
		if err := mailer.SendEmail(ctx, person.Email, subject, body); err != nil {
			// the token is already stored; the link can still be shared by hand
			logger.Error("Failed to email voting link", zap.String("person_id", person.ID), zap.Error(err))
			return issued, fmt.Errorf("token %s issued but email failed: %w", record.ID, err)
		}
		issued.Emailed = true
	}

	return issued, nil
}

// RevokeToken revokes a token immediately
func RevokeToken(ctx context.Context, store TokenAdminStore, logger *zap.Logger, tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return model.Invalid("tokenId", "token id is required")
	}
	if err := store.RevokeToken(ctx, tokenID, now()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	logger.Info("Token revoked", zap.String("token_id", tokenID))
	return nil
}

// VotingLink builds <base>/vote?batch=<id>&token=<raw>
func VotingLink(baseURL, batchID, rawToken string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/vote")
	if err != nil {
		return "", fmt.Errorf("invalid public base url: %w", err)
	}
	q := u.Query()
	q.Set("batch", batchID)
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func linkEmail(person *db.Person, batch *db.Batch, link string, expiresAt time.Time) (string, string) {
	subject := fmt.Sprintf("Dispatch vote: %s to %s", batch.StartDate, batch.EndDate)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", person.DisplayName)
	fmt.Fprintf(&b, "Jobs scheduled from %s to %s need your call on the forecast.\n", batch.StartDate, batch.EndDate)
	b.WriteString("Open your personal link to vote on each job:\n\n")
	fmt.Fprintf(&b, "%s\n\n", link)
	fmt.Fprintf(&b, "The link expires %s. Please don't forward it.\n", expiresAt.Format("Mon Jan 2 15:04 MST"))
	return subject, b.String()
}
