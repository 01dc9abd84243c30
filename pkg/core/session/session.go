package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/flow"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/normalize"
	"github.com/jakechorley/dispatch-vote/pkg/core/services"
	"github.com/jakechorley/dispatch-vote/pkg/core/weather"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// ErrBusy is returned when a submission is attempted while another is in flight
var ErrBusy = errors.New("a submission is already in progress")

// Backend is the portal surface a session talks to
type Backend interface {
	Context(ctx context.Context, token string) (*model.VotingContext, error)
	Submit(ctx context.Context, req services.SubmitVoteRequest) (*model.SubmitResult, error)
	JobVotes(ctx context.Context, token string, key model.ItemKey) ([]model.JobVote, error)
	// JobWeather returns (nil, nil) when the job has no forecast
	JobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error)
}

// Options configures a session
type Options struct {
	RequireReason bool
	SubmitPause   time.Duration
	Logger        *zap.Logger
}

// LoadOptions controls how a context load presents itself
type LoadOptions struct {
	// Silent keeps the current screen up instead of showing the loading state
	Silent bool
	// Preserve keeps an in-progress voting or summary screen across the reload
	Preserve bool
}

// Session is one voter's in-memory projection of their batch.
// It is driven from a single goroutine; only Close may be called concurrently.
type Session struct {
	backend Backend
	token   string
	opts    Options
	logger  *zap.Logger

	flow    *flow.Controller
	context *model.VotingContext
	votes   map[model.ItemKey]model.Vote
	drafts  map[model.ItemKey]model.Vote
	weather *weather.Cache

	busy      bool
	submitErr error
	cancelled atomic.Bool
}

// New creates a session for token. Nothing is fetched until Load.
func New(backend Backend, token string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		backend: backend,
		token:   token,
		opts:    opts,
		logger:  logger,
		flow:    flow.New(),
		votes:   make(map[model.ItemKey]model.Vote),
		drafts:  make(map[model.ItemKey]model.Vote),
		weather: weather.NewCache(backend.JobWeather),
	}
}

// Close marks the session as torn down. Results that arrive afterwards are discarded.
func (s *Session) Close() {
	s.cancelled.Store(true)
}

// Load fetches the voting context and rebuilds the projection from it
func (s *Session) Load(ctx context.Context, opts LoadOptions) error {
	if !opts.Silent {
		s.flow.Reloading()
	}

	vc, err := s.backend.Context(ctx, s.token)
	if s.cancelled.Load() {
		s.logger.Debug("Discarding context load for closed session")
		return nil
	}
	if err != nil {
		if opts.Silent {
			s.logger.Warn("Silent context refresh failed", zap.Error(err))
			return err
		}
		s.flow.Failed(err)
		return err
	}

	s.apply(vc, opts.Preserve)
	return nil
}

func (s *Session) apply(vc *model.VotingContext, preserve bool) {
	votes := make(map[model.ItemKey]model.Vote, len(vc.Votes))
	for _, item := range vc.Items {
		if item.ExistingVote != nil {
			votes[item.ItemKey] = *item.ExistingVote
		}
	}
	for _, v := range vc.Votes {
		votes[v.ItemKey] = v
	}

	s.context = vc
	s.votes = votes
	if !preserve {
		s.drafts = make(map[model.ItemKey]model.Vote)
	}
	s.submitErr = nil
	s.flow.Loaded(flow.Completion(vc.Items, votes), preserve)
}

// State returns the current screen
func (s *Session) State() flow.State { return s.flow.State() }

// Err returns the error behind the Error screen
func (s *Session) Err() error { return s.flow.Err() }

// SubmitErr returns the last inline submission error, cleared by the next successful submit or load
func (s *Session) SubmitErr() error { return s.submitErr }

// Busy reports whether a submission is in flight
func (s *Session) Busy() bool { return s.busy }

// Context returns the loaded voting context, or nil before the first successful load
func (s *Session) Context() *model.VotingContext { return s.context }

// Items returns the voting items in display order
func (s *Session) Items() []model.VoteItem {
	if s.context == nil {
		return nil
	}
	return s.context.Items
}

// Counts returns the current aggregate counts
func (s *Session) Counts() model.Counts {
	if s.context == nil {
		return model.Counts{}
	}
	return s.context.Counts
}

// Index returns the current item index while voting
func (s *Session) Index() int { return s.flow.Index() }

// Current returns the item being voted on, or nil outside the voting screen
func (s *Session) Current() *model.VoteItem {
	items := s.Items()
	if s.flow.State() != flow.Voting || s.flow.Index() >= len(items) {
		return nil
	}
	return &items[s.flow.Index()]
}

// Vote returns the recorded vote for key
func (s *Session) Vote(key model.ItemKey) (model.Vote, bool) {
	v, ok := s.votes[key]
	return v, ok
}

// Draft returns the in-progress vote for key, falling back to the recorded vote
func (s *Session) Draft(key model.ItemKey) model.Vote {
	if d, ok := s.drafts[key]; ok {
		return d
	}
	if v, ok := s.votes[key]; ok {
		return v
	}
	return model.Vote{ItemKey: key}
}

// SetDraft replaces the draft for the current item
func (s *Session) SetDraft(value, reason string, delayMinutes *int) error {
	item := s.Current()
	if item == nil {
		return fmt.Errorf("%w: no current item", flow.ErrInvalidTransition)
	}
	s.drafts[item.ItemKey] = model.Vote{
		ItemKey:      item.ItemKey,
		VoteValue:    value,
		VoteReason:   reason,
		DelayMinutes: delayMinutes,
	}
	return nil
}

// CanAdvance reports whether the current draft is ready to submit
func (s *Session) CanAdvance() bool {
	item := s.Current()
	if item == nil || s.busy {
		return false
	}
	return flow.CanAdvance(s.Draft(item.ItemKey), s.opts.RequireReason)
}

// Start moves from welcome to the first item needing a vote
func (s *Session) Start() error {
	return s.flow.Start(s.completion())
}

// Next moves to the following item
func (s *Session) Next() error { return s.flow.Next() }

// Prev moves to the preceding item
func (s *Session) Prev() error { return s.flow.Prev() }

// Back returns from summary to welcome
func (s *Session) Back() error { return s.flow.Back() }

// Edit reopens item index for voting
func (s *Session) Edit(index int) error { return s.flow.Edit(index) }

// Submit sends the current draft. The vote is applied locally first, then replaced by the stored row.
// An unauthorized response triggers a full reload; any other failure rolls back the local vote and keeps the draft.
func (s *Session) Submit(ctx context.Context) error {
	if s.busy {
		return ErrBusy
	}
	item := s.Current()
	if item == nil {
		return fmt.Errorf("%w: submit outside voting", flow.ErrInvalidTransition)
	}
	index := s.flow.Index()
	key := item.ItemKey
	draft := s.Draft(key)

	if err := model.ValidateBatchVote(draft.VoteValue, draft.VoteReason, draft.DelayMinutes, s.opts.RequireReason); err != nil {
		s.submitErr = err
		return err
	}

	s.busy = true
	defer func() { s.busy = false }()

	previous, hadPrevious := s.votes[key]
	draft.ItemKey = key
	s.votes[key] = draft

	result, err := s.backend.Submit(ctx, services.SubmitVoteRequest{
		Token:        s.token,
		ItemKey:      key,
		VoteValue:    draft.VoteValue,
		VoteReason:   draft.VoteReason,
		DelayMinutes: draft.DelayMinutes,
	})
	if s.cancelled.Load() {
		return nil
	}
	if err != nil {
		if hadPrevious {
			s.votes[key] = previous
		} else {
			delete(s.votes, key)
		}
		s.submitErr = err

		if errors.Is(err, db.ErrUnauthorized) {
			s.logger.Warn("Token no longer authorized, reloading", zap.Error(err))
			_ = s.Load(ctx, LoadOptions{})
		}
		return err
	}

	stored := result.Vote
	if stored.ItemKey.IsZero() {
		stored.ItemKey = key
	}
	s.votes[key] = stored
	delete(s.drafts, key)
	s.submitErr = nil
	s.patchContext(result.Counts)

	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.cancelled.Load() {
		return nil
	}

	if err := s.flow.Submitted(index, s.completion()); err != nil {
		return err
	}

	// reconcile with the backend without disturbing the screen
	_ = s.Load(ctx, LoadOptions{Silent: true, Preserve: true})
	return nil
}

// patchContext writes the local vote map back into the context envelope
func (s *Session) patchContext(reported *model.Counts) {
	if s.context == nil {
		return
	}
	s.context.Votes = normalize.Merge(s.context.Items, s.votes)
	s.context.Counts = normalize.Counts(reported, s.context.Items, s.votes)
}

// wait holds the voted screen briefly so the change registers before moving on
func (s *Session) wait(ctx context.Context) error {
	if s.opts.SubmitPause <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.SubmitPause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) completion() []bool {
	return flow.Completion(s.Items(), s.votes)
}

// Weather returns the forecast for item, fetching it at most once per session
func (s *Session) Weather(ctx context.Context, item model.VoteItem) (*model.JobWeather, error) {
	return s.weather.Get(ctx, item.InternalJobID, item.ForecastDate)
}

// PrefetchWeather warms the forecast cache for every item
func (s *Session) PrefetchWeather(ctx context.Context) {
	s.weather.Prefetch(ctx, s.Items())
}

// JobVotes lists every vote cast on the current item
func (s *Session) JobVotes(ctx context.Context) ([]model.JobVote, error) {
	item := s.Current()
	if item == nil {
		return nil, fmt.Errorf("%w: no current item", flow.ErrInvalidTransition)
	}
	return s.backend.JobVotes(ctx, s.token, item.ItemKey)
}
