package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// GetPerson retrieves a person by id
func (d *DB) GetPerson(ctx context.Context, personID string) (*db.Person, error) {
	var p db.Person
	var email *string
	err := d.pool.QueryRow(ctx, `
		SELECT id, display_name, role, email, invite_status, last_activity_at
		FROM person WHERE id = $1
	`, personID).Scan(&p.ID, &p.DisplayName, &p.Role, &email, &p.InviteStatus, &p.LastActivityAt)
	if isNoRows(err) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query person: %w", err)
	}
	if email != nil {
		p.Email = *email
	}
	return &p, nil
}

// MarkPersonActivity advances the invite marker. It only moves forward:
// not-started -> started -> completed. Anything else is a no-op.
func (d *DB) MarkPersonActivity(ctx context.Context, personID string, status string) error {
	rank := map[string]int{model.InviteNotStarted: 0, model.InviteStarted: 1, model.InviteCompleted: 2}
	target, ok := rank[status]
	if !ok {
		return fmt.Errorf("unknown invite status %q", status)
	}

	_, err := d.pool.Exec(ctx, `
		UPDATE person SET invite_status = $2, last_activity_at = NOW()
		WHERE id = $1
		  AND (CASE invite_status WHEN 'not-started' THEN 0 WHEN 'started' THEN 1 ELSE 2 END) <= $3
	`, personID, status, target)
	if err != nil {
		return fmt.Errorf("failed to mark person activity: %w", err)
	}
	return nil
}
