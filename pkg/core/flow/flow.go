package flow

import (
	"errors"
	"fmt"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// State is the screen currently shown to the voter
type State int

const (
	Loading State = iota
	Welcome
	Voting
	Summary
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Welcome:
		return "welcome"
	case Voting:
		return "voting"
	case Summary:
		return "summary"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an action is not allowed in the current state
var ErrInvalidTransition = errors.New("invalid transition")

// Controller drives the loading -> welcome -> voting -> summary progression.
// It holds only the screen and the current index; item completion is supplied by the caller.
type Controller struct {
	state   State
	index   int
	count   int
	lastErr error
}

// New returns a controller in the Loading state
func New() *Controller {
	return &Controller{state: Loading}
}

// State returns the current screen
func (c *Controller) State() State { return c.state }

// Index returns the current item index; only meaningful while Voting
func (c *Controller) Index() int { return c.index }

// Err returns the error that moved the controller to Error
func (c *Controller) Err() error { return c.lastErr }

// Loaded applies a completed context load. complete[i] reports whether item i has a completed vote.
// A fully voted context lands on Summary. With preserve set, a Voting or Summary screen survives the reload
// so a background refresh does not kick the voter back to Welcome.
func (c *Controller) Loaded(complete []bool, preserve bool) {
	c.count = len(complete)
	c.lastErr = nil

	if preserve && (c.state == Voting || c.state == Summary) {
		if c.state == Voting && c.index >= c.count {
			c.index = max(c.count-1, 0)
		}
		if c.count == 0 {
			c.state = Summary
		}
		return
	}

	if allComplete(complete) {
		c.state = Summary
		return
	}
	c.state = Welcome
	c.index = 0
}

// Failed moves to Error from any state
func (c *Controller) Failed(err error) {
	c.state = Error
	c.lastErr = err
}

// Reloading moves back to Loading, for a full (non-silent) reload
func (c *Controller) Reloading() {
	c.state = Loading
}

// Start leaves Welcome for the first incomplete item, or the first item when all are complete
func (c *Controller) Start(complete []bool) error {
	if c.state != Welcome || len(complete) == 0 {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.state)
	}
	c.index = 0
	for i, done := range complete {
		if !done {
			c.index = i
			break
		}
	}
	c.state = Voting
	return nil
}

// Next moves to the following item, staying on the last one at the end of the list
func (c *Controller) Next() error {
	if c.state != Voting {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, c.state)
	}
	if c.index < c.count-1 {
		c.index++
	}
	return nil
}

// Prev moves to the preceding item, staying on the first one at the start of the list
func (c *Controller) Prev() error {
	if c.state != Voting {
		return fmt.Errorf("%w: prev from %s", ErrInvalidTransition, c.state)
	}
	if c.index > 0 {
		c.index--
	}
	return nil
}

// Submitted applies a successful submission of item index.
// The search for the next incomplete item only looks forward from index; when nothing later is incomplete
// the controller moves to Summary even if earlier items are still open.
func (c *Controller) Submitted(index int, complete []bool) error {
	if c.state != Voting {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, c.state)
	}
	if index < 0 || index >= len(complete) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidTransition, index)
	}
	c.count = len(complete)

	for i := index + 1; i < len(complete); i++ {
		if !complete[i] {
			c.index = i
			return nil
		}
	}
	c.state = Summary
	return nil
}

// Back returns from Summary to Welcome
func (c *Controller) Back() error {
	if c.state != Summary {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, c.state)
	}
	c.state = Welcome
	return nil
}

// Edit jumps from Summary straight to one item so a vote can be changed
func (c *Controller) Edit(index int) error {
	if c.state != Summary && c.state != Voting {
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, c.state)
	}
	if index < 0 || index >= c.count {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidTransition, index)
	}
	c.index = index
	c.state = Voting
	return nil
}

// CanAdvance is the submission-readiness check for a draft vote
func CanAdvance(draft model.Vote, requireReason bool) bool {
	return model.ValidateBatchVote(draft.VoteValue, draft.VoteReason, draft.DelayMinutes, requireReason) == nil
}

// Completion lists, per item, whether the vote map holds a completed vote for it
func Completion(items []model.VoteItem, votes map[model.ItemKey]model.Vote) []bool {
	complete := make([]bool, len(items))
	for i, item := range items {
		v, ok := votes[item.ItemKey]
		complete[i] = ok && v.Complete()
	}
	return complete
}

func allComplete(complete []bool) bool {
	for _, done := range complete {
		if !done {
			return false
		}
	}
	return true
}
