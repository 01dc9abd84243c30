package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// GetBatch retrieves a batch by id
func (d *DB) GetBatch(ctx context.Context, batchID string) (*db.Batch, error) {
	var b db.Batch
	err := d.pool.QueryRow(ctx, `
		SELECT id, start_date::text, end_date::text, status, created_at
		FROM batch WHERE id = $1
	`, batchID).Scan(&b.ID, &b.StartDate, &b.EndDate, &b.Status, &b.CreatedAt)
	if isNoRows(err) {
		return nil, db.NotFound("batch %s not found", batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	return &b, nil
}

// InsertBatch inserts a batch record
func (d *DB) InsertBatch(ctx context.Context, batch *db.Batch) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO batch (id, start_date, end_date, status, created_at)
		VALUES ($1, $2::date, $3::date, $4, $5)
	`, batch.ID, batch.StartDate, batch.EndDate, batch.Status, batch.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("batch %s already exists", batch.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// ListBatchVotes returns every vote in a batch joined with voter and item details
func (d *DB) ListBatchVotes(ctx context.Context, batchID string) ([]db.BatchVote, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT p.display_name, p.role,
			COALESCE(vi.payload->>'property_name', vi.payload->>'propertyName', j.property_name, ''),
			v.internal_job_id, v.forecast_date::text, v.lens_id,
			v.vote_value, v.vote_reason, v.delay_minutes, v.voted_at
		FROM vote v
		JOIN person p ON p.id = v.person_id
		JOIN vote_item vi ON vi.batch_id = v.batch_id
			AND vi.internal_job_id = v.internal_job_id
			AND vi.forecast_date = v.forecast_date
			AND vi.lens_id = v.lens_id
		LEFT JOIN job j ON j.id = v.internal_job_id
		WHERE v.batch_id = $1
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch votes: %w", err)
	}
	defer rows.Close()

	var votes []db.BatchVote
	for rows.Next() {
		var bv db.BatchVote
		var reason *string
		if err := rows.Scan(
			&bv.PersonName, &bv.PersonRole, &bv.PropertyName,
			&bv.InternalJobID, &bv.ForecastDate, &bv.LensID,
			&bv.VoteValue, &reason, &bv.DelayMinutes, &bv.VotedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch vote: %w", err)
		}
		if reason != nil {
			bv.VoteReason = *reason
		}
		votes = append(votes, bv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch votes: %w", err)
	}

	return votes, nil
}
