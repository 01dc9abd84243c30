package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const assignmentColumns = `
	a.id, a.campaign_id, a.person_id, a.job_id, a.vote, a.delay_minutes, a.comment, a.status, a.voted_at,
	j.id, j.property_name, j.service_name, j.scheduled_date::text, j.route_start_time, j.route_end_time`

// ListAssignments retrieves a person's assignments in a campaign with their jobs
func (d *DB) ListAssignments(ctx context.Context, campaignID, personID string) ([]model.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment a
		LEFT JOIN job j ON j.id = a.job_id
		WHERE a.campaign_id = $1 AND a.person_id = $2
		ORDER BY j.scheduled_date, j.route_start_time, a.id
	`, campaignID, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// UpdateAssignment records a vote and moves the assignment to voted in one statement
func (d *DB) UpdateAssignment(ctx context.Context, update db.AssignmentUpdate) (*model.Assignment, error) {
	var comment *string
	if update.Comment != "" {
		comment = &update.Comment
	}

	row := d.pool.QueryRow(ctx, `
		WITH a AS (
			UPDATE assignment
			SET vote = $2, delay_minutes = $3, comment = $4, status = 'voted', voted_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+assignmentColumns+`
		FROM a
		LEFT JOIN job j ON j.id = a.job_id
	`, update.ID, update.Vote, update.DelayMinutes, comment)

	a, err := scanAssignment(row)
	if isNoRows(err) {
		return nil, db.NotFound("assignment %s not found", update.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return a, nil
}

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	var a model.Assignment
	var vote, comment *string
	var jobID, property, service, scheduled, routeStart, routeEnd *string

	if err := row.Scan(
		&a.ID, &a.CampaignID, &a.PersonID, &a.JobID, &vote, &a.DelayMinutes, &comment, &a.Status, &a.VotedAt,
		&jobID, &property, &service, &scheduled, &routeStart, &routeEnd,
	); err != nil {
		return nil, err
	}

	a.Vote = deref(vote)
	a.Comment = deref(comment)
	if jobID != nil {
		a.Job = &model.Job{
			ID:             *jobID,
			PropertyName:   deref(property),
			ServiceName:    deref(service),
			ScheduledDate:  deref(scheduled),
			RouteStartTime: deref(routeStart),
			RouteEndTime:   deref(routeEnd),
		}
	}
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
