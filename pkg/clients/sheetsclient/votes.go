package sheetsclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/api/sheets/v4"
)

// VoteRow is one exported vote
type VoteRow struct {
	Voter        string
	Role         string
	Property     string
	JobID        string
	ForecastDate string
	LensID       string
	Vote         string
	DelayMinutes *int
	Reason       string
	VotedAt      *time.Time
}

// VoteExport is the content of one batch tab
type VoteExport struct {
	BatchID   string
	StartDate string // 2006-01-02
	EndDate   string // 2006-01-02
	Rows      []VoteRow
}

var voteHeader = []interface{}{"Voter", "Role", "Property", "Job", "Forecast date", "Lens", "Vote", "Delay (min)", "Reason", "Voted at"}

// ExportVotes writes a batch's votes to its own tab, creating it on first export.
// An existing tab is cleared and rewritten so re-exports reflect changed votes.
func (c *Client) ExportVotes(ctx context.Context, spreadsheetID string, export *VoteExport) (string, error) {
	title, err := TabTitle(export.StartDate, export.EndDate)
	if err != nil {
		return "", err
	}

	exists, err := c.hasSheet(ctx, spreadsheetID, title)
	if err != nil {
		return "", err
	}

	if exists {
		if _, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, title, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("failed to clear tab: %w", err)
		}
	} else {
		if _, err := c.CreateSheet(ctx, spreadsheetID, title); err != nil {
			return "", fmt.Errorf("failed to create tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{Values: BuildVoteRows(export)}
	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, fmt.Sprintf("'%s'!A1", title), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to write votes: %w", err)
	}

	return title, nil
}

// TabTitle formats a batch window as "Mon Jun 02 2025 - Fri Jun 06 2025"
func TabTitle(startDate, endDate string) (string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return "", fmt.Errorf("invalid end date: %w", err)
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon Jan 02 2006"), end.Format("Mon Jan 02 2006")), nil
}

// BuildVoteRows renders the header, one line per vote, and nothing else
func BuildVoteRows(export *VoteExport) [][]interface{} {
	rows := make([][]interface{}, 0, len(export.Rows)+1)
	rows = append(rows, voteHeader)

	for _, r := range export.Rows {
		delay := ""
		if r.DelayMinutes != nil {
			delay = strconv.Itoa(*r.DelayMinutes)
		}
		votedAt := ""
		if r.VotedAt != nil {
			votedAt = r.VotedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []interface{}{
			r.Voter, r.Role, r.Property, r.JobID, r.ForecastDate, r.LensID, r.Vote, delay, r.Reason, votedAt,
		})
	}

	return rows
}
