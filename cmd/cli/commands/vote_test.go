package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/flow"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/normalize"
	"github.com/jakechorley/dispatch-vote/pkg/core/services"
	"github.com/jakechorley/dispatch-vote/pkg/core/session"
	"github.com/jakechorley/dispatch-vote/pkg/db"
	"github.com/jakechorley/dispatch-vote/pkg/ui"
)

type fakePortal struct {
	items     []model.VoteItem
	votes     map[model.ItemKey]model.Vote
	submitted []services.SubmitVoteRequest
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		items: []model.VoteItem{
			{ItemKey: model.ItemKey{InternalJobID: "J1", ForecastDate: "2025-06-02", LensID: "L1"}, PropertyName: "Elm Court"},
			{ItemKey: model.ItemKey{InternalJobID: "J2", ForecastDate: "2025-06-03", LensID: "L1"}, PropertyName: "Oak Yard"},
		},
		votes: map[model.ItemKey]model.Vote{},
	}
}

func (p *fakePortal) Context(ctx context.Context, token string) (*model.VotingContext, error) {
	items := append([]model.VoteItem(nil), p.items...)
	return &model.VotingContext{
		Voter:  model.Voter{PersonID: "p1", DisplayName: "Jane", Role: model.RoleCrew},
		Items:  items,
		Votes:  normalize.Merge(items, p.votes),
		Counts: normalize.Counts(nil, items, p.votes),
	}, nil
}

func (p *fakePortal) Submit(ctx context.Context, req services.SubmitVoteRequest) (*model.SubmitResult, error) {
	p.submitted = append(p.submitted, req)
	vote := model.Vote{ItemKey: req.ItemKey, VoteValue: req.VoteValue, VoteReason: req.VoteReason, DelayMinutes: req.DelayMinutes}
	p.votes[req.ItemKey] = vote
	return &model.SubmitResult{Vote: vote, Status: "ok"}, nil
}

func (p *fakePortal) JobVotes(ctx context.Context, token string, key model.ItemKey) ([]model.JobVote, error) {
	return []model.JobVote{{VoterType: "crew", VoterLabel: "Sam", VoteValue: model.VoteCancel, VoteReason: "flooding"}}, nil
}

func (p *fakePortal) JobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	return nil, nil
}

func newTestVoter(t *testing.T, portal *fakePortal) (*voter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := session.New(portal, "tok", session.Options{})
	t.Cleanup(s.Close)
	return &voter{
		session:  s,
		renderer: ui.NewRenderer(&out, ui.NopEffects{}),
		out:      &out,
		logger:   zap.NewNop(),
	}, &out
}

func TestVoter_Run(t *testing.T) {
	portal := newFakePortal()
	v, out := newTestVoter(t, portal)

	input := strings.Join([]string{
		"start",
		`vote 2 "too wet"`,
		"submit",
		"delay 30",
		"submit",
		"quit",
	}, "\n")

	require.NoError(t, v.run(context.Background(), strings.NewReader(input)))

	require.Len(t, portal.submitted, 2)
	assert.Equal(t, model.VoteCancel, portal.submitted[0].VoteValue)
	assert.Equal(t, "too wet", portal.submitted[0].VoteReason)
	assert.Nil(t, portal.submitted[0].DelayMinutes)

	assert.Equal(t, model.VoteDelay, portal.submitted[1].VoteValue)
	require.NotNil(t, portal.submitted[1].DelayMinutes)
	assert.Equal(t, 30, *portal.submitted[1].DelayMinutes)

	assert.Equal(t, flow.Summary, v.session.State())
	assert.Contains(t, out.String(), "Summary: 2 of 2 voted")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestVoter_Exec(t *testing.T) {
	ctx := context.Background()
	portal := newFakePortal()
	v, out := newTestVoter(t, portal)
	require.NoError(t, v.session.Load(ctx, session.LoadOptions{}))

	_, err := v.exec(ctx, []string{"reason", "anything"})
	assert.ErrorIs(t, err, flow.ErrInvalidTransition)

	_, err = v.exec(ctx, []string{"dance"})
	assert.ErrorContains(t, err, "unknown command: dance")

	_, err = v.exec(ctx, []string{"start"})
	require.NoError(t, err)

	t.Run("vote flags", func(t *testing.T) {
		_, err := v.exec(ctx, []string{"vote", "delay", "--delay", "45", "--reason", "late start"})
		require.NoError(t, err)
		draft := v.session.Draft(v.session.Current().ItemKey)
		assert.Equal(t, model.VoteDelay, draft.VoteValue)
		assert.Equal(t, "late start", draft.VoteReason)
		require.NotNil(t, draft.DelayMinutes)
		assert.Equal(t, 45, *draft.DelayMinutes)
	})

	t.Run("switching away from delay drops the minutes", func(t *testing.T) {
		_, err := v.exec(ctx, []string{"vote", "1"})
		require.NoError(t, err)
		draft := v.session.Draft(v.session.Current().ItemKey)
		assert.Equal(t, model.VoteDispatchAnyway, draft.VoteValue)
		assert.Equal(t, "late start", draft.VoteReason)
		assert.Nil(t, draft.DelayMinutes)
	})

	t.Run("bad option", func(t *testing.T) {
		_, err := v.exec(ctx, []string{"vote", "9"})
		assert.ErrorContains(t, err, "between 1 and 4")
	})

	t.Run("job votes", func(t *testing.T) {
		out.Reset()
		_, err := v.exec(ctx, []string{"votes"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Cancel - flooding")
	})

	quit, err := v.exec(ctx, []string{"exit"})
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestVoter_RunStopsOnCancel(t *testing.T) {
	v, _ := newTestVoter(t, newFakePortal())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a reader that never returns a line
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	assert.NoError(t, v.run(ctx, r))
}

func TestParseVotingLink(t *testing.T) {
	link, err := parseVotingLink("https://vote.example.com/portal/vote?batch=b+1&token=a%2Bb")
	require.NoError(t, err)
	assert.Equal(t, "https://vote.example.com/portal", link.baseURL)
	assert.Equal(t, "b 1", link.batchID)
	assert.Equal(t, "a+b", link.token)

	_, err = parseVotingLink("https://vote.example.com/vote?batch=b1")
	assert.ErrorContains(t, err, "no token")

	_, err = parseVotingLink("not a link")
	assert.ErrorContains(t, err, "invalid voting link")
}

func TestVoteOption(t *testing.T) {
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "1", want: model.VoteDispatchAnyway},
		{arg: "4", want: model.VoteDecideAtDispatch},
		{arg: "cancel", want: model.VoteCancel},
		{arg: "Decide at dispatch", want: model.VoteDecideAtDispatch},
		{arg: "0", wantErr: true},
		{arg: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := voteOption(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandLine(t *testing.T) {
	parts, err := parseCommandLine(`vote 2 --reason "standing water" 'x y'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"vote", "2", "--reason", "standing water", "x y"}, parts)

	_, err = parseCommandLine(`reason "unfinished`)
	assert.ErrorContains(t, err, "unclosed quote")
}

type stubResolver struct {
	err   error
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, batchID, token string) (*model.Voter, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &model.Voter{PersonID: "p1"}, nil
}

func TestCheckLink(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected token fails the command", func(t *testing.T) {
		var out bytes.Buffer
		r := &stubResolver{err: db.ErrForbidden}

		err := checkLink(ctx, r, "b1", "tok", &out)

		require.Error(t, err)
		assert.ErrorIs(t, err, db.ErrForbidden)
		assert.Contains(t, out.String(), "no longer valid")
	})

	t.Run("valid token", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, checkLink(ctx, &stubResolver{}, "b1", "tok", &out))
		assert.Empty(t, out.String())
	})

	t.Run("no batch skips the check", func(t *testing.T) {
		r := &stubResolver{err: errors.New("unreachable")}
		require.NoError(t, checkLink(ctx, r, "", "tok", io.Discard))
		assert.Equal(t, 0, r.calls)
	})
}

func TestReadLines_StopsWhenDone(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	done := make(chan struct{})
	lines := readLines(done, r)
	close(done)

	// the reader goroutine must exit on its next line instead of blocking on the send
	go func() { _, _ = w.Write([]byte("start\n")) }()

	_, ok := <-lines
	assert.False(t, ok)
}
