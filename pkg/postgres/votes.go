package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const batchStatusOpen = "open"

var errBatchClosed = errors.New("voting for this batch is closed")

var _ db.Database = (*DB)(nil)

// GetContextRows returns the raw item and vote rows for a person's batch.
// Item rows are the generator payload with the identity columns laid over it.
func (d *DB) GetContextRows(ctx context.Context, batchID, personID string) (*db.RawContext, error) {
	batch, err := d.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	items, err := d.jsonRows(ctx, `
		SELECT payload || jsonb_build_object(
			'internal_job_id', internal_job_id,
			'forecast_date', forecast_date::text,
			'lens_id', lens_id)
		FROM vote_item
		WHERE batch_id = $1
		ORDER BY position, forecast_date, internal_job_id, lens_id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote items: %w", err)
	}

	votes, err := d.jsonRows(ctx, `
		SELECT jsonb_build_object(
			'internal_job_id', internal_job_id,
			'forecast_date', forecast_date::text,
			'lens_id', lens_id,
			'vote_value', vote_value,
			'vote_reason', vote_reason,
			'delay_minutes', delay_minutes,
			'voted_at', voted_at)
		FROM vote
		WHERE batch_id = $1 AND person_id = $2
	`, batchID, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}

	return &db.RawContext{Batch: *batch, Items: items, Votes: votes}, nil
}

func (d *DB) jsonRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var row map[string]any
		if err := rows.Scan(&row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertVote writes one vote, last write wins, and returns the stored row with the person's refreshed counts.
// The batch must be open and the item must belong to it.
func (d *DB) UpsertVote(ctx context.Context, vote db.VoteUpsert) (*db.StoredVote, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM batch WHERE id = $1 FOR SHARE`, vote.BatchID).Scan(&status)
	if isNoRows(err) {
		return nil, db.NotFound("batch %s not found", vote.BatchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batch status: %w", err)
	}
	if status != batchStatusOpen {
		return nil, errBatchClosed
	}

	var hasVoted bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM vote WHERE batch_id = $1 AND person_id = $2)
	`, vote.BatchID, vote.PersonID).Scan(&hasVoted); err != nil {
		return nil, fmt.Errorf("failed to check existing votes: %w", err)
	}

	var reason *string
	if vote.VoteReason != "" {
		reason = &vote.VoteReason
	}

	stored := &db.StoredVote{Status: "voted", FirstVote: !hasVoted}
	stored.Vote.ItemKey = vote.ItemKey
	var storedReason *string
	err = tx.QueryRow(ctx, `
		INSERT INTO vote (id, batch_id, person_id, internal_job_id, forecast_date, lens_id, vote_value, vote_reason, delay_minutes)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
		ON CONFLICT (batch_id, person_id, internal_job_id, forecast_date, lens_id) DO UPDATE
		SET vote_value = EXCLUDED.vote_value,
			vote_reason = EXCLUDED.vote_reason,
			delay_minutes = EXCLUDED.delay_minutes,
			voted_at = NOW()
		RETURNING vote_value, vote_reason, delay_minutes, voted_at
	`, uuid.New().String(), vote.BatchID, vote.PersonID,
		vote.InternalJobID, vote.ForecastDate, vote.LensID,
		vote.VoteValue, reason, vote.DelayMinutes,
	).Scan(&stored.Vote.VoteValue, &storedReason, &stored.Vote.DelayMinutes, &stored.Vote.VotedAt)
	if isForeignKeyViolation(err) {
		return nil, db.NotFound("item %s is not part of this batch", vote.ItemKey.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert vote: %w", err)
	}
	if storedReason != nil {
		stored.Vote.VoteReason = *storedReason
	}

	counts, err := personCounts(ctx, tx, vote.BatchID, vote.PersonID)
	if err != nil {
		return nil, err
	}
	stored.Counts = counts

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, nil
}

func personCounts(ctx context.Context, tx pgx.Tx, batchID, personID string) (*model.Counts, error) {
	var c model.Counts
	err := tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM vote_item WHERE batch_id = $1),
			(SELECT COUNT(*) FROM vote WHERE batch_id = $1 AND person_id = $2)
	`, batchID, personID).Scan(&c.Total, &c.Voted)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	c.Remaining = max(c.Total-c.Voted, 0)
	return &c, nil
}

// GetJobVotes lists every vote on one item in a batch, oldest first
func (d *DB) GetJobVotes(ctx context.Context, batchID string, key model.ItemKey) ([]model.JobVote, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT p.role, p.display_name, v.vote_value, v.vote_reason, v.voted_at
		FROM vote v
		JOIN person p ON p.id = v.person_id
		WHERE v.batch_id = $1 AND v.internal_job_id = $2 AND v.forecast_date = $3::date AND v.lens_id = $4
		ORDER BY v.voted_at
	`, batchID, key.InternalJobID, key.ForecastDate, key.LensID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job votes: %w", err)
	}
	defer rows.Close()

	var votes []model.JobVote
	for rows.Next() {
		var v model.JobVote
		var reason *string
		if err := rows.Scan(&v.VoterType, &v.VoterLabel, &v.VoteValue, &reason, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job vote: %w", err)
		}
		if reason != nil {
			v.VoteReason = *reason
		}
		votes = append(votes, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job votes: %w", err)
	}

	return votes, nil
}
