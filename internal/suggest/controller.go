// Package suggest drives repository name suggestions while a repoRelease
// source is being composed: debounced owner and query inputs, listing or
// search requests, filtering of already registered repositories and the
// dropdown visibility rules.
package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/debounce"
	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// DefaultDelay is the debounce quiet period of both inputs.
const DefaultDelay = 500 * time.Millisecond

// Searcher is the subset of the hosting API the controller calls.
type Searcher interface {
	ListOwnerRepos(ctx context.Context, owner string) ([]github.Repository, error)
	SearchOwnerRepos(ctx context.Context, owner, term string) ([]github.Repository, error)
}

// Registered reports repositories that already exist as sources.
type Registered interface {
	HasRepo(owner, name string) bool
}

// Options configures a Controller.
type Options struct {
	Delay time.Duration
}

// selection suppresses the evaluation caused by writing a picked suggestion
// into the query. It is consumed by the next settled query value.
type selection struct {
	token uint64
	value string
}

// Controller is safe for concurrent use. Requests run on their own
// goroutines; only the response of the latest issued request is applied.
type Controller struct {
	searcher Searcher
	registry Registered
	logger   logger.Logger

	ownerInput *debounce.Debouncer[string]
	queryInput *debounce.Debouncer[string]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	state        State
	settledOwner string
	settledQuery string
	requestSeq   uint64
	selectionSeq uint64
	selection    *selection
	listeners    []func(State)
	closed       bool

	// A settled value changed since the last evaluation.
	ownerDirty bool
	queryDirty bool
}

// New creates a Controller in the idle state.
func New(searcher Searcher, registry Registered, opts Options, log logger.Logger) *Controller {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		searcher: searcher,
		registry: registry,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		state: State{
			Status:      StatusIdle,
			Suggestions: []string{},
		},
	}
	c.ownerInput = debounce.New(delay, c.ownerSettled)
	c.queryInput = debounce.New(delay, c.querySettled)
	return c
}

// OnChange registers fn to receive every new state. Listeners run outside
// the controller lock, in registration order.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetOwner records a raw owner keystroke. Cached suggestions belong to the
// previous owner and are dropped right away, along with any in-flight response.
func (c *Controller) SetOwner(owner string) {
	c.update(func() bool {
		c.state.Owner = owner
		c.state.clearOutcome()
		c.state.Status = StatusIdle
		c.state.Mode = ""
		c.state.DropdownOpen = false
		c.requestSeq++
		return true
	})
	c.ownerInput.Set(owner)
}

// SetQuery records a raw query keystroke.
func (c *Controller) SetQuery(query string) {
	c.update(func() bool {
		c.state.Query = query
		return true
	})
	c.queryInput.Set(query)
}

// Focus is the query field gaining focus. With an owner and nothing cached it
// lists the owner's repositories immediately, skipping the debounce; with
// cached suggestions it reopens the dropdown.
func (c *Controller) Focus() {
	c.update(func() bool {
		if strings.TrimSpace(c.state.Owner) != "" && len(c.state.Suggestions) == 0 {
			owner := strings.TrimSpace(c.settledOwner)
			if owner == "" || c.closed {
				return false
			}
			c.startLocked(owner, "")
			return true
		}
		if len(c.state.Suggestions) > 0 && !c.state.DropdownOpen {
			c.state.DropdownOpen = true
			return true
		}
		return false
	})
}

// Select writes a picked suggestion into the query and closes the dropdown.
// The debounced evaluation that this write causes is suppressed exactly once.
func (c *Controller) Select(value string) {
	c.update(func() bool {
		// Responses still in flight were issued for the text being replaced.
		c.requestSeq++
		if c.state.Status == StatusSearching {
			c.settleSearchingLocked()
		}
		c.state.Query = value
		c.state.DropdownOpen = false

		c.syncSettledLocked()
		if value == c.settledQuery {
			// Already settled: no evaluation will follow, so nothing to suppress.
			// A settled owner may have been waiting on the dropped keystroke.
			c.selection = nil
			c.queryInput.Cancel()
			c.evaluateLocked()
			return true
		}

		c.selectionSeq++
		c.selection = &selection{token: c.selectionSeq, value: value}
		// Under the lock, so a callback for an older value sees the query
		// pending and leaves the selection armed.
		c.queryInput.Set(value)
		return true
	})
}

// ToggleDropdown flips the dropdown when there are suggestions to show and
// reports whether it is now open.
func (c *Controller) ToggleDropdown() bool {
	open := false
	c.update(func() bool {
		if len(c.state.Suggestions) == 0 {
			open = c.state.DropdownOpen
			return false
		}
		c.state.DropdownOpen = !c.state.DropdownOpen
		open = c.state.DropdownOpen
		return true
	})
	return open
}

// Dismiss closes the dropdown, as a click outside of it does.
func (c *Controller) Dismiss() {
	c.update(func() bool {
		if !c.state.DropdownOpen {
			return false
		}
		c.state.DropdownOpen = false
		return true
	})
}

// Reset clears the query and the suggestions after a repository has been
// added. The owner is kept, so the cleared query lists it again once settled.
func (c *Controller) Reset() {
	c.update(func() bool {
		c.requestSeq++
		c.selection = nil
		c.state.Query = ""
		c.state.clearOutcome()
		c.state.Status = StatusIdle
		c.state.Mode = ""
		c.state.DropdownOpen = false
		return true
	})
	c.queryInput.Set("")
}

// Close stops both debouncers and waits for in-flight requests.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.ownerInput.Stop()
	c.queryInput.Stop()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) ownerSettled(string) {
	c.update(c.evaluateLocked)
}

func (c *Controller) querySettled(string) {
	c.update(func() bool {
		c.syncSettledLocked()
		// consumed by the latest settled value whether or not it matched
		if !c.queryInput.Pending() {
			c.selection = nil
		}
		return c.evaluateLocked()
	})
}

// syncSettledLocked copies the settled values out of both debouncers. Either
// callback may run first when both inputs settle at once, so each one reads
// the pair rather than only its own value. A query settling to the picked
// suggestion is not a change worth searching for.
func (c *Controller) syncSettledLocked() {
	if owner := c.ownerInput.Settled(); owner != c.settledOwner {
		c.settledOwner = owner
		c.ownerDirty = true
	}

	query := c.queryInput.Settled()
	if query == c.settledQuery {
		return
	}
	c.settledQuery = query
	c.queryDirty = true

	if sel := c.selection; sel != nil && sel.value == query {
		c.selection = nil
		c.queryDirty = false
		c.logger.Debug("suggestion search suppressed after selection",
			logger.Uint64("selection", sel.token),
			logger.String("query", query))
	}
}

// evaluateLocked starts a request for the settled pair once a settled value
// changed and neither input is still waiting for its quiet period. Nothing
// happens while the owner is empty.
func (c *Controller) evaluateLocked() bool {
	c.syncSettledLocked()
	if !c.ownerDirty && !c.queryDirty {
		return false
	}
	if c.ownerInput.Pending() || c.queryInput.Pending() {
		return false
	}
	c.ownerDirty, c.queryDirty = false, false

	owner := strings.TrimSpace(c.settledOwner)
	if owner == "" || c.closed {
		return false
	}
	c.startLocked(owner, c.settledQuery)
	return true
}

func (c *Controller) startLocked(owner, query string) {
	c.requestSeq++
	token := c.requestSeq

	mode := ModeListing
	if strings.TrimSpace(query) != "" {
		mode = ModeSearch
	}
	c.state.Status = StatusSearching
	c.state.Mode = mode
	c.state.ErrorKind = ""
	c.state.Message = ""

	c.wg.Add(1)
	go c.run(token, owner, query, mode)
}

func (c *Controller) run(token uint64, owner, query string, mode Mode) {
	defer c.wg.Done()

	var (
		repos []github.Repository
		err   error
	)
	if mode == ModeListing {
		repos, err = c.searcher.ListOwnerRepos(c.ctx, owner)
	} else {
		repos, err = c.searcher.SearchOwnerRepos(c.ctx, owner, strings.TrimSpace(query))
	}

	c.update(func() bool {
		if token != c.requestSeq {
			c.logger.Debug("dropping stale suggestion response",
				logger.Uint64("token", token),
				logger.Uint64("latest", c.requestSeq))
			return false
		}
		if c.ctx.Err() != nil {
			return false
		}
		if err != nil {
			c.applyErrorLocked(mode, err)
			return true
		}
		c.applyResultsLocked(owner, query, repos)
		return true
	})
}

func (c *Controller) applyErrorLocked(mode Mode, err error) {
	kind := classify(mode, err)
	c.logger.Warn("suggestion search failed",
		logger.String("mode", string(mode)),
		logger.String("kind", string(kind)),
		logger.Error(err))

	c.state.clearOutcome()
	c.state.Status = StatusError
	c.state.ErrorKind = kind
	c.state.Message = errorMessages[kind]
	c.state.DropdownOpen = true
}

func (c *Controller) applyResultsLocked(owner, query string, repos []github.Repository) {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		if c.registry != nil && c.registry.HasRepo(owner, r.Name) {
			continue
		}
		names = append(names, r.Name)
	}

	c.state.clearOutcome()
	c.state.Suggestions = names

	switch {
	case len(names) > 0:
		c.state.Status = StatusResults
		c.state.DropdownOpen = true
	case len(repos) > 0:
		c.state.Status = StatusEmpty
		c.state.EmptyReason = EmptyAllAdded
		c.state.DropdownOpen = true
	case strings.TrimSpace(query) != "":
		c.state.Status = StatusEmpty
		c.state.EmptyReason = EmptyNoMatches
		c.state.DropdownOpen = true
	default:
		// Not forced open.
		c.state.Status = StatusEmpty
		c.state.EmptyReason = EmptyNoneListed
	}
	c.state.Message = emptyMessages[c.state.EmptyReason]
}

// settleSearchingLocked leaves the searching phase once its request has been
// invalidated, falling back to whatever is cached.
func (c *Controller) settleSearchingLocked() {
	if len(c.state.Suggestions) > 0 {
		c.state.Status = StatusResults
		return
	}
	c.state.Status = StatusIdle
}

// update runs fn under the lock and, if it reports a change, publishes the
// new state to listeners once the lock is released.
func (c *Controller) update(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	if !changed || len(c.listeners) == 0 {
		c.mu.Unlock()
		return
	}
	snap := c.state.clone()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func classify(mode Mode, err error) ErrorKind {
	switch {
	case errors.Is(err, github.ErrRateLimited):
		return ErrorRateLimited
	case mode == ModeListing && errors.Is(err, github.ErrNotFound):
		return ErrorOwnerNotFound
	default:
		return ErrorTransportFailure
	}
}
