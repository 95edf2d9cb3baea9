// Package session drives one user's live search: debounced mutations, superseding requests
// and snapshot delivery. Transitions are computed by a pure reducer; Controller performs the effects.
package session

import (
	"slices"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

// State is the lifecycle phase of a session.
type State string

// States.
const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateQuerying   State = "querying"
	StateReady      State = "ready"
	StateErrored    State = "errored"
)

// Snapshot is an immutable view of a session.
type Snapshot struct {
	SessionID     string
	State         State
	Params        request.Params
	Results       []result.Result
	Facets        []facet.Facet
	Suggestions   []suggestion.Suggestion
	Pagination    pagination.Page
	ExecutionTime time.Duration
	Loading       bool
	Err           error
	// Token identifies the request whose response the session is waiting for.
	Token uint64
}

func (s Snapshot) clone() Snapshot {
	s.Params.Criteria.Tags = slices.Clone(s.Params.Criteria.Tags)
	return s
}

type machine struct {
	snap        Snapshot
	debounceGen uint64
	lastToken   uint64
}

// Events.
type (
	event interface{ isEvent() }

	setQuery   struct{ query string }
	setFilters struct{ criteria filter.Criteria }
	setSort    struct {
		by  order.Field
		dir order.Direction
	}
	setPage  struct{ page int }
	setLimit struct{ limit int }
	setFlags struct{ facets, suggestions bool }

	debounceElapsed struct{ gen uint64 }
	responseArrived struct {
		token uint64
		resp  searchuc.Response
	}
	requestFailed struct {
		token uint64
		err   error
	}
)

func (setQuery) isEvent()        {}
func (setFilters) isEvent()      {}
func (setSort) isEvent()         {}
func (setPage) isEvent()         {}
func (setLimit) isEvent()        {}
func (setFlags) isEvent()        {}
func (debounceElapsed) isEvent() {}
func (responseArrived) isEvent() {}
func (requestFailed) isEvent()   {}

// effect lists what the controller must do after a transition.
type effect struct {
	armDebounce    bool
	cancelInFlight bool
	startQuery     bool
	stale          bool
	publish        bool
}

// reduce is the transition function. It never mutates m.
func reduce(m machine, ev event) (machine, effect) {
	switch e := ev.(type) {
	case setQuery, setFilters, setSort, setPage, setLimit, setFlags:
		return mutate(m, e)

	case debounceElapsed:
		if m.snap.State != StateDebouncing || e.gen != m.debounceGen {
			return m, effect{}
		}
		m.lastToken++
		m.snap.Token = m.lastToken
		m.snap.State = StateQuerying
		m.snap.Loading = true
		return m, effect{startQuery: true, publish: true}

	case responseArrived:
		if m.snap.State != StateQuerying || e.token != m.snap.Token {
			return m, effect{stale: true}
		}
		m.snap.State = StateReady
		m.snap.Loading = false
		m.snap.Err = nil
		m.snap.Results = e.resp.Results
		m.snap.Facets = e.resp.Facets
		m.snap.Suggestions = e.resp.Suggestions
		m.snap.Pagination = e.resp.Pagination
		m.snap.ExecutionTime = e.resp.ExecutionTime
		return m, effect{publish: true}

	case requestFailed:
		if m.snap.State != StateQuerying || e.token != m.snap.Token {
			return m, effect{stale: true}
		}
		m.snap.State = StateErrored
		m.snap.Loading = false
		m.snap.Err = e.err
		return m, effect{publish: true}
	}
	return m, effect{}
}

// mutate applies a parameter change. Every change except an explicit page switch goes back to page 1.
// Any mutation re-arms the debounce timer; one made while querying cancels the in-flight request.
func mutate(m machine, ev event) (machine, effect) {
	p := m.snap.Params
	p.Criteria.Tags = slices.Clone(p.Criteria.Tags)

	switch e := ev.(type) {
	case setQuery:
		p.Criteria.Query = e.query
		p.Page = 1
	case setFilters:
		q := p.Criteria.Query
		p.Criteria = e.criteria
		p.Criteria.Tags = slices.Clone(e.criteria.Tags)
		p.Criteria.Query = q
		p.Page = 1
	case setSort:
		p.SortBy = e.by
		p.SortOrder = e.dir
		p.Page = 1
	case setPage:
		p.Page = e.page
	case setLimit:
		p.Limit = e.limit
		p.Page = 1
	case setFlags:
		p.IncludeFacets = e.facets
		p.IncludeSuggestions = e.suggestions
	}

	eff := effect{armDebounce: true, publish: true}
	if m.snap.State == StateQuerying {
		eff.cancelInFlight = true
	}
	m.snap.Params = p
	m.snap.State = StateDebouncing
	m.snap.Loading = true
	m.debounceGen++
	return m, eff
}
