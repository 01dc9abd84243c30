package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/dispatch-vote/pkg/core/flow"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/normalize"
	"github.com/jakechorley/dispatch-vote/pkg/core/session"
	"github.com/jakechorley/dispatch-vote/pkg/core/weather"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// hourRows is how many forecast hours are shown around the job window
const hourRows = 8

// Renderer draws the session's current screen as text
type Renderer struct {
	out     io.Writer
	effects Effects

	rendered  bool
	lastState flow.State
	lastVoted int
}

// NewRenderer creates a renderer. A nil effects disables them.
func NewRenderer(out io.Writer, effects Effects) *Renderer {
	if effects == nil {
		effects = NopEffects{}
	}
	return &Renderer{out: out, effects: effects}
}

// Render draws the screen for s. forecast is the current item's weather, if known.
func (r *Renderer) Render(s *session.Session, forecast *model.JobWeather) {
	state := s.State()
	voted := s.Counts().Voted

	if r.rendered {
		if voted > r.lastVoted {
			r.effects.Vibrate()
		}
		if state == flow.Summary && r.lastState != flow.Summary {
			r.effects.Burst()
		}
	}
	r.rendered = true
	r.lastState = state
	r.lastVoted = voted

	switch state {
	case flow.Loading:
		fmt.Fprintln(r.out, "Loading your jobs...")
	case flow.Welcome:
		r.welcome(s)
	case flow.Voting:
		r.voting(s, forecast)
	case flow.Summary:
		r.summary(s)
	case flow.Error:
		r.failure(s.Err())
	}
}

func (r *Renderer) welcome(s *session.Session) {
	vc := s.Context()
	counts := s.Counts()

	fmt.Fprintf(r.out, "\nHi %s (%s)\n", vc.Voter.DisplayName, vc.Voter.Role)
	if vc.Batch.StartDate != "" {
		fmt.Fprintf(r.out, "Jobs from %s to %s\n", vc.Batch.StartDate, vc.Batch.EndDate)
	}
	fmt.Fprintf(r.out, "%d jobs, %d voted, %d remaining\n", counts.Total, counts.Voted, counts.Remaining)
	fmt.Fprintf(r.out, "Link valid until %s\n", vc.Token.ExpiresAt.Format("Mon Jan 2 15:04"))
	fmt.Fprintln(r.out, "\nType 'start' to begin.")
}

func (r *Renderer) voting(s *session.Session, forecast *model.JobWeather) {
	item := s.Current()
	if item == nil {
		return
	}
	counts := s.Counts()

	fmt.Fprintf(r.out, "\n[%d/%d] %s  %s\n", s.Index()+1, counts.Total, dateLabel(item.ForecastDate), item.PropertyName)
	if item.ServiceName != "" {
		fmt.Fprintf(r.out, "  Service: %s\n", item.ServiceName)
	}
	if item.RouteStartTime != "" {
		fmt.Fprintf(r.out, "  Route:   %s - %s\n", item.RouteStartTime, orDash(item.RouteEndTime))
	}
	fmt.Fprintf(r.out, "  Risk:    %s  (rain %.0f%%, %.2f in)\n", orDash(item.RiskLevel), item.MaxRainChance, item.MaxRainInches)
	if item.EstimatorInitials != "" {
		fmt.Fprintf(r.out, "  Estimator: %s\n", item.EstimatorInitials)
	}

	r.hourly(item, forecast)

	draft := s.Draft(item.ItemKey)
	fmt.Fprintln(r.out)
	for i, value := range model.BatchVoteValues {
		marker := " "
		if draft.VoteValue == value {
			marker = "x"
		}
		fmt.Fprintf(r.out, "  %d) [%s] %s\n", i+1, marker, value)
	}
	if draft.DelayMinutes != nil {
		fmt.Fprintf(r.out, "  Delay: %d min\n", *draft.DelayMinutes)
	}
	if draft.VoteReason != "" {
		fmt.Fprintf(r.out, "  Reason: %s\n", draft.VoteReason)
	}
	if err := s.SubmitErr(); err != nil {
		fmt.Fprintf(r.out, "  ! %s\n", err.Error())
	}
	if s.Busy() {
		fmt.Fprintln(r.out, "  Saving...")
	}
}

func (r *Renderer) hourly(item *model.VoteItem, forecast *model.JobWeather) {
	if forecast == nil || len(forecast.Hourly) == 0 {
		return
	}

	if worst := weather.Worst(forecast); worst != nil {
		fmt.Fprintf(r.out, "  Worst hour: %s, %.0f%% rain\n", worst.Time, worst.RainChance)
	}

	marks := weather.Annotate(forecast.Hourly, item.RouteStartTime, item.RouteEndTime)
	start := weather.ScrollIndex(marks)
	end := min(start+hourRows, len(marks))
	for _, m := range marks[start:end] {
		tag := "  "
		switch {
		case m.JobStart:
			tag = "S>"
		case m.JobEnd:
			tag = "E>"
		case m.InWindow:
			tag = " |"
		}
		fmt.Fprintf(r.out, "  %s %-6s %3.0f%% %5.2fin %4.0f° %s\n", tag, m.Time, m.RainChance, m.RainInches, m.Temperature, m.Condition)
	}
}

func (r *Renderer) summary(s *session.Session) {
	counts := s.Counts()
	fmt.Fprintf(r.out, "\nSummary: %d of %d voted\n", counts.Voted, counts.Total)

	index := 0
	for _, group := range normalize.Group(s.Items()) {
		fmt.Fprintf(r.out, "\n%s\n", dateLabel(group.Label))
		for _, item := range group.Items {
			index++
			vote, ok := s.Vote(item.ItemKey)
			if !ok || !vote.Complete() {
				fmt.Fprintf(r.out, "  %2d. %-30s  (not voted)\n", index, item.PropertyName)
				continue
			}
			line := vote.VoteValue
			if vote.DelayMinutes != nil {
				line = fmt.Sprintf("%s %d min", line, *vote.DelayMinutes)
			}
			if vote.VoteReason != "" {
				line += " - " + vote.VoteReason
			}
			fmt.Fprintf(r.out, "  %2d. %-30s  %s\n", index, item.PropertyName, line)
		}
	}
	fmt.Fprintln(r.out, "\nType 'edit <n>' to change a vote, 'back' for the start screen, or 'quit'.")
}

// JobVotes lists everyone's votes on one item
func (r *Renderer) JobVotes(votes []model.JobVote) {
	if len(votes) == 0 {
		fmt.Fprintln(r.out, "No votes on this job yet.")
		return
	}
	for _, v := range votes {
		line := fmt.Sprintf("  %-12s %-6s %s", orDash(v.VoterLabel), v.VoterType, v.VoteValue)
		if v.VoteReason != "" {
			line += " - " + v.VoteReason
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *Renderer) failure(err error) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, ErrorMessage(err))
}

// ErrorMessage is the voter-facing text for a failed load
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return "Something went wrong."
	case errors.Is(err, db.ErrUnauthorized), errors.Is(err, db.ErrForbidden):
		return "This voting link is no longer valid. Please ask for a new link."
	case errors.Is(err, db.ErrNotFound):
		return "There is nothing to vote on right now."
	default:
		return fmt.Sprintf("Something went wrong: %s\nType 'refresh' to try again.", err.Error())
	}
}

func dateLabel(date string) string {
	if date == "" {
		return normalize.UnknownDateBucket
	}
	return date
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
