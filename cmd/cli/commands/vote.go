package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/clients/portalclient"
	"github.com/jakechorley/dispatch-vote/pkg/core/flow"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/session"
	"github.com/jakechorley/dispatch-vote/pkg/ui"
)

// VoteCmd creates the interactive voter
func VoteCmd(app *AppContext) *cobra.Command {
	var baseURL, token, batchID string

	cmd := &cobra.Command{
		Use:   "vote [voting_link]",
		Short: "Vote on your jobs from the terminal",
		Long: `Open a voting session against the portal.

Pass the voting link you were sent, or --token (and optionally --url and --batch).
Type 'help' inside the session for the available commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				link, err := parseVotingLink(args[0])
				if err != nil {
					return err
				}
				baseURL, token, batchID = link.baseURL, link.token, link.batchID
			}
			if baseURL == "" {
				baseURL = app.Cfg.Server.PublicBaseURL
			}
			if token == "" {
				return errors.New("a voting link or --token is required")
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := portalclient.NewClient(baseURL, nil, app.Logger)
			renderer := ui.NewRenderer(os.Stdout, ui.NewTerminalEffects(os.Stdout))

			if err := checkLink(ctx, client, batchID, token, os.Stdout); err != nil {
				return err
			}

			s := session.New(client, token, session.Options{
				RequireReason: app.Cfg.Votes.RequireReason,
				SubmitPause:   time.Duration(app.Cfg.Votes.SubmitPauseMillis) * time.Millisecond,
				Logger:        app.Logger,
			})
			defer s.Close()

			v := &voter{session: s, renderer: renderer, out: os.Stdout, logger: app.Logger}
			return v.run(ctx, os.Stdin)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Portal base URL (defaults to server.publicBaseURL)")
	cmd.Flags().StringVar(&token, "token", "", "Voting token")
	cmd.Flags().StringVar(&batchID, "batch", "", "Batch the token was issued for")
	return cmd
}

type votingLink struct {
	baseURL string
	batchID string
	token   string
}

// parseVotingLink splits <base>/vote?batch=<id>&token=<raw> back into its parts
func parseVotingLink(raw string) (votingLink, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return votingLink{}, fmt.Errorf("invalid voting link: %q", raw)
	}
	q := u.Query()
	link := votingLink{
		batchID: q.Get("batch"),
		token:   q.Get("token"),
	}
	if link.token == "" {
		return votingLink{}, errors.New("voting link has no token")
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/vote")
	link.baseURL = u.String()
	return link, nil
}

// resolver confirms a token belongs to a batch
type resolver interface {
	Resolve(ctx context.Context, batchID, token string) (*model.Voter, error)
}

// checkLink rejects a link whose token does not resolve for its batch. Links without a batch skip the check.
func checkLink(ctx context.Context, r resolver, batchID, token string, out io.Writer) error {
	if batchID == "" {
		return nil
	}
	if _, err := r.Resolve(ctx, batchID, token); err != nil {
		fmt.Fprintln(out, ui.ErrorMessage(err))
		return fmt.Errorf("failed to open voting link: %w", err)
	}
	return nil
}

// readLines feeds lines from in until it is exhausted or done is closed
func readLines(done <-chan struct{}, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-done:
				return
			default:
			}
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// voter drives a session from typed commands
type voter struct {
	session  *session.Session
	renderer *ui.Renderer
	out      io.Writer
	logger   *zap.Logger
}

func (v *voter) run(ctx context.Context, in io.Reader) error {
	if err := v.session.Load(ctx, session.LoadOptions{}); err == nil {
		v.session.PrefetchWeather(ctx)
	}
	v.render(ctx)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(done, in)

	for {
		fmt.Fprint(v.out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(v.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		parts, err := parseCommandLine(line)
		if err != nil {
			fmt.Fprintf(v.out, "❌ Error parsing command: %v\n", err)
			continue
		}

		quit, err := v.exec(ctx, parts)
		if quit {
			fmt.Fprintln(v.out, "👋 Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(v.out, "❌ %v\n", err)
			continue
		}
	}
}

// exec runs one command. Screens are re-rendered after anything that can move the session.
func (v *voter) exec(ctx context.Context, parts []string) (bool, error) {
	s := v.session
	name, args := parts[0], parts[1:]

	var err error
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		v.help()
		return false, nil
	case "start":
		err = s.Start()
	case "next":
		err = s.Next()
	case "prev":
		err = s.Prev()
	case "back":
		err = s.Back()
	case "edit":
		err = v.edit(args)
	case "vote":
		err = v.draftVote(args)
	case "delay":
		err = v.draftDelay(args)
	case "reason":
		err = v.draftReason(args)
	case "submit":
		// a failed submit is shown on the voting screen
		_ = s.Submit(ctx)
	case "refresh":
		_ = s.Load(ctx, session.LoadOptions{})
	case "votes":
		votes, vErr := s.JobVotes(ctx)
		if vErr != nil {
			return false, vErr
		}
		v.renderer.JobVotes(votes)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for available commands)", name)
	}
	if err != nil {
		return false, err
	}

	v.render(ctx)
	return false, nil
}

func (v *voter) render(ctx context.Context) {
	var forecast *model.JobWeather
	if v.session.State() == flow.Voting {
		if item := v.session.Current(); item != nil {
			w, err := v.session.Weather(ctx, *item)
			if err != nil {
				v.logger.Debug("Forecast unavailable", zap.String("job_id", item.InternalJobID), zap.Error(err))
			}
			forecast = w
		}
	}
	v.renderer.Render(v.session, forecast)
}

func (v *voter) edit(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: edit <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("n must be a number: %w", err)
	}
	return v.session.Edit(n - 1)
}

// draftVote handles: vote <option> [--delay minutes] [--reason text | reason words...]
func (v *voter) draftVote(args []string) error {
	fs := pflag.NewFlagSet("vote", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	delay := fs.Int("delay", 0, "Delay in minutes")
	reason := fs.String("reason", "", "Reason for the vote")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: vote <option> [--delay minutes] [--reason text]")
	}
	value, err := voteOption(rest[0])
	if err != nil {
		return err
	}

	item := v.session.Current()
	if item == nil {
		return fmt.Errorf("%w: not voting", flow.ErrInvalidTransition)
	}
	draft := v.session.Draft(item.ItemKey)

	text := draft.VoteReason
	switch {
	case fs.Changed("reason"):
		text = *reason
	case len(rest) > 1:
		text = strings.Join(rest[1:], " ")
	}

	minutes := draft.DelayMinutes
	if fs.Changed("delay") {
		minutes = delay
	}
	if !model.IsDelayVote(value) {
		minutes = nil
	}

	return v.session.SetDraft(value, text, minutes)
}

func (v *voter) draftDelay(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delay <minutes>")
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("minutes must be a number: %w", err)
	}
	item := v.session.Current()
	if item == nil {
		return fmt.Errorf("%w: not voting", flow.ErrInvalidTransition)
	}
	draft := v.session.Draft(item.ItemKey)
	return v.session.SetDraft(model.VoteDelay, draft.VoteReason, &minutes)
}

func (v *voter) draftReason(args []string) error {
	item := v.session.Current()
	if item == nil {
		return fmt.Errorf("%w: not voting", flow.ErrInvalidTransition)
	}
	draft := v.session.Draft(item.ItemKey)
	return v.session.SetDraft(draft.VoteValue, strings.Join(args, " "), draft.DelayMinutes)
}

// voteOption accepts a 1-based option number or the option text, case-insensitively
func voteOption(arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(model.BatchVoteValues) {
			return "", fmt.Errorf("option must be between 1 and %d", len(model.BatchVoteValues))
		}
		return model.BatchVoteValues[n-1], nil
	}
	for _, value := range model.BatchVoteValues {
		if strings.EqualFold(value, arg) {
			return value, nil
		}
	}
	return "", fmt.Errorf("unknown option %q", arg)
}

func (v *voter) help() {
	fmt.Fprintln(v.out, `
Commands:
  start                      Begin voting from the first job without a vote
  vote <n> [reason...]       Choose option n (--delay <min>, --reason <text>)
  delay <minutes>            Vote to delay by minutes
  reason <text>              Set the reason for the current vote
  submit                     Save the current vote and move on
  next | prev                Move between jobs without voting
  votes                      Show everyone's votes on this job
  edit <n>                   Reopen job n from the summary
  back                       Return to the start screen
  refresh                    Reload your jobs
  quit                       Leave`)
}
