package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// GetTokenByHash retrieves a token and its person by lookup key
func (d *DB) GetTokenByHash(ctx context.Context, tokenHash string) (*db.Token, error) {
	var t db.Token
	var email *string
	err := d.pool.QueryRow(ctx, `
		SELECT t.id, t.batch_id, t.person_id, t.token_hash, t.expires_at, t.revoked_at, t.first_viewed_at, t.created_at,
			p.id, p.display_name, p.role, p.email, p.invite_status, p.last_activity_at
		FROM voting_token t
		JOIN person p ON p.id = t.person_id
		WHERE t.token_hash = $1
	`, tokenHash).Scan(
		&t.ID, &t.BatchID, &t.PersonID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.FirstViewedAt, &t.CreatedAt,
		&t.Person.ID, &t.Person.DisplayName, &t.Person.Role, &email, &t.Person.InviteStatus, &t.Person.LastActivityAt,
	)
	if isNoRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	if email != nil {
		t.Person.Email = *email
	}
	return &t, nil
}

// MarkTokenViewed stamps first_viewed_at once
func (d *DB) MarkTokenViewed(ctx context.Context, tokenID string) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE voting_token SET first_viewed_at = NOW()
		WHERE id = $1 AND first_viewed_at IS NULL
	`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to mark token viewed: %w", err)
	}
	return nil
}

// InsertToken inserts a token record
func (d *DB) InsertToken(ctx context.Context, token *db.Token) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO voting_token (id, batch_id, person_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.BatchID, token.PersonID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if isForeignKeyViolation(err) {
		return db.NotFound("batch %s or person %s does not exist", token.BatchID, token.PersonID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// RevokeToken sets revoked_at. Revoking twice keeps the first timestamp.
func (d *DB) RevokeToken(ctx context.Context, tokenID string, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE voting_token SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`, tokenID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound("token %s not found", tokenID)
	}
	return nil
}
