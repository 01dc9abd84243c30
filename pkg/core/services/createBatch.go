package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// maxBatchDays bounds rule expansion; a batch never covers more than this many days
const maxBatchDays = 62

// BatchStatusOpen is the status of a newly created batch
const BatchStatusOpen = "open"

// BatchStore defines the database operations needed to create a batch
type BatchStore interface {
	InsertBatch(ctx context.Context, batch *db.Batch) error
}

// BatchResult represents the result of creating a batch
type BatchResult struct {
	Batch         *db.Batch
	ForecastDates []time.Time
}

// CreateBatch creates a voting batch whose window is the set of forecast dates produced by an RRULE from start.
// An empty rule falls back to batches.defaultRRule and then to the start date alone.
func CreateBatch(ctx context.Context, store BatchStore, cfg *config.Config, logger *zap.Logger, start string, rule string) (*BatchResult, error) {
	startDate, err := time.Parse("2006-01-02", strings.TrimSpace(start))
	if err != nil {
		return nil, model.Invalid("start", "start must be YYYY-MM-DD")
	}

	if rule == "" {
		rule = cfg.Batches.DefaultRRule
	}

	dates, err := forecastDates(startDate, rule)
	if err != nil {
		return nil, err
	}

	batch := &db.Batch{
		ID:        uuid.New().String(),
		StartDate: dates[0].Format("2006-01-02"),
		EndDate:   dates[len(dates)-1].Format("2006-01-02"),
		Status:    BatchStatusOpen,
		CreatedAt: now(),
	}

	logger.Debug("Creating batch",
		zap.String("id", batch.ID),
		zap.String("start", batch.StartDate),
		zap.String("end", batch.EndDate),
		zap.Int("forecast_dates", len(dates)))

	if err := store.InsertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	logger.Info("Batch created", zap.String("batch_id", batch.ID))

	return &BatchResult{Batch: batch, ForecastDates: dates}, nil
}

func forecastDates(start time.Time, rule string) ([]time.Time, error) {
	if rule == "" {
		return []time.Time{start}, nil
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, model.Invalid("rrule", "invalid rrule: %v", err)
	}
	r.DTStart(start)

	dates := r.Between(start, start.AddDate(0, 0, maxBatchDays), true)
	if len(dates) == 0 {
		return nil, model.Invalid("rrule", "rrule produces no dates within %d days of %s", maxBatchDays, start.Format("2006-01-02"))
	}
	return dates, nil
}
