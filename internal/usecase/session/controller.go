package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

// Defaults.
const (
	DefaultDebounce   = 300 * time.Millisecond
	subscriberBacklog = 16
)

// Searcher executes one search round trip.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
}

// Config tunes a controller.
type Config struct {
	Debounce time.Duration
	Limits   request.Limits
}

// Controller owns one session. All mutations go through the same debounce path;
// responses of superseded requests are discarded by token.
type Controller struct {
	mu       sync.Mutex
	m        machine
	searcher Searcher
	cfg      Config
	base     context.Context
	timer    *time.Timer
	cancel   context.CancelFunc
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool
	logger   *zap.Logger
}

// NewController creates an idle session. ctx carries request-scoped values (principal, logger)
// for every search the session issues; cancelling it does not close the session.
func NewController(ctx context.Context, id string, searcher Searcher, cfg Config, logger *zap.Logger) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Limits == (request.Limits{}) {
		cfg.Limits = request.DefaultLimits()
	}
	metrics.SessionsActive.Inc()
	return &Controller{
		m: machine{snap: Snapshot{
			SessionID: id,
			State:     StateIdle,
			Params:    request.Params{Page: 1, Limit: cfg.Limits.DefaultLimit, SessionID: id},
		}},
		searcher: searcher,
		cfg:      cfg,
		base:     context.WithoutCancel(ctx),
		subs:     make(map[int]chan Snapshot),
		logger:   logger.With(zap.String("session_id", id)),
	}
}

// SetQuery replaces the free-text query.
func (c *Controller) SetQuery(q string) { c.dispatch(setQuery{query: q}) }

// SetFilters replaces the structured filters. The query is kept.
func (c *Controller) SetFilters(f filter.Criteria) { c.dispatch(setFilters{criteria: f}) }

// SetSort changes the ordering.
func (c *Controller) SetSort(by order.Field, dir order.Direction) {
	c.dispatch(setSort{by: by, dir: dir})
}

// SetPage switches to another page of the current result set.
func (c *Controller) SetPage(page int) { c.dispatch(setPage{page: page}) }

// SetLimit changes the page size.
func (c *Controller) SetLimit(limit int) { c.dispatch(setLimit{limit: limit}) }

// SetIncludes toggles facet counts and inline suggestions.
func (c *Controller) SetIncludes(facets, suggestions bool) {
	c.dispatch(setFlags{facets: facets, suggestions: suggestions})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.snap.clone()
}

// Subscribe returns a channel of snapshots, starting with the current one, and a function to stop.
// A slow subscriber loses its oldest pending snapshots, never the latest.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBacklog)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.m.snap.clone()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close cancels pending work and ends every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	metrics.SessionsActive.Dec()
}

func (c *Controller) dispatch(ev event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	next, eff := reduce(c.m, ev)
	c.m = next

	if eff.stale {
		metrics.SessionStaleResponsesTotal.Inc()
		c.logger.Debug("Discarded stale search response")
	}
	if eff.cancelInFlight && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if eff.armDebounce {
		if c.timer != nil {
			c.timer.Stop()
		}
		gen := next.debounceGen
		c.timer = time.AfterFunc(c.cfg.Debounce, func() {
			c.dispatch(debounceElapsed{gen: gen})
		})
	}
	if eff.startQuery {
		c.start(next.snap.Token, next.snap.Params)
	}
	if eff.publish {
		c.publish(next.snap.clone())
	}
}

// start issues the search for token. The result comes back as an event.
func (c *Controller) start(token uint64, params request.Params) {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel

	go func() {
		defer cancel()
		req, err := request.New(params, c.cfg.Limits)
		var resp searchuc.Response
		if err == nil {
			resp, err = c.searcher.Search(ctx, req)
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Debug("Session search failed", zap.Uint64("token", token), zap.Error(err))
			}
			c.dispatch(requestFailed{token: token, err: err})
			return
		}
		c.dispatch(responseArrived{token: token, resp: resp})
	}()
}

// publish delivers under c.mu so subscribers observe snapshots in transition order.
func (c *Controller) publish(s Snapshot) {
	for _, ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
