package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/clients/sheetsclient"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// ExportStore defines the database operations needed to export a batch's votes
type ExportStore interface {
	GetBatch(ctx context.Context, batchID string) (*db.Batch, error)
	ListBatchVotes(ctx context.Context, batchID string) ([]db.BatchVote, error)
}

// VoteExporter writes a batch export somewhere people can read it
type VoteExporter interface {
	ExportVotes(ctx context.Context, spreadsheetID string, export *sheetsclient.VoteExport) (string, error)
}

// ExportResult reports what was written
type ExportResult struct {
	Tab   string
	Votes int
}

// ExportVotes writes every vote in a batch to the configured spreadsheet, ordered by item then voter
func ExportVotes(ctx context.Context, store ExportStore, exporter VoteExporter, cfg *config.Config, logger *zap.Logger, batchID string) (*ExportResult, error) {
	if batchID == "" {
		return nil, model.Invalid("batchId", "batch id is required")
	}
	if err := cfg.RequireExport(); err != nil {
		return nil, err
	}

	batch, err := store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	votes, err := store.ListBatchVotes(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	sortBatchVotes(votes)

	export := &sheetsclient.VoteExport{
		BatchID:   batch.ID,
		StartDate: batch.StartDate,
		EndDate:   batch.EndDate,
		Rows:      make([]sheetsclient.VoteRow, 0, len(votes)),
	}
	for _, v := range votes {
		export.Rows = append(export.Rows, sheetsclient.VoteRow{
			Voter:        v.PersonName,
			Role:         v.PersonRole,
			Property:     v.PropertyName,
			JobID:        v.InternalJobID,
			ForecastDate: v.ForecastDate,
			LensID:       v.LensID,
			Vote:         v.VoteValue,
			DelayMinutes: v.DelayMinutes,
			Reason:       v.VoteReason,
			VotedAt:      v.VotedAt,
		})
	}

	tab, err := exporter.ExportVotes(ctx, cfg.Export.SheetID, export)
	if err != nil {
		return nil, fmt.Errorf("failed to export votes: %w", err)
	}

	logger.Info("Votes exported",
		zap.String("batch_id", batchID),
		zap.String("tab", tab),
		zap.Int("votes", len(votes)))

	return &ExportResult{Tab: tab, Votes: len(votes)}, nil
}

// sortBatchVotes orders by forecast date, job, lens, then voter name
func sortBatchVotes(votes []db.BatchVote) {
	sort.SliceStable(votes, func(i, j int) bool {
		a, b := votes[i], votes[j]
		switch {
		case a.ForecastDate != b.ForecastDate:
			return a.ForecastDate < b.ForecastDate
		case a.InternalJobID != b.InternalJobID:
			return a.InternalJobID < b.InternalJobID
		case a.LensID != b.LensID:
			return a.LensID < b.LensID
		default:
			return a.PersonName < b.PersonName
		}
	})
}
