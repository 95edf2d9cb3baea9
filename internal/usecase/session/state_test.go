package session

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

func idle() machine {
	return machine{snap: Snapshot{State: StateIdle, Params: request.Params{Page: 1, Limit: 10}}}
}

func TestReduce_MutationArmsDebounce(t *testing.T) {
	m, eff := reduce(idle(), setQuery{query: "lathe"})
	if m.snap.State != StateDebouncing || !m.snap.Loading {
		t.Errorf("state = %s loading = %v", m.snap.State, m.snap.Loading)
	}
	if !eff.armDebounce || !eff.publish || eff.startQuery || eff.cancelInFlight {
		t.Errorf("effect = %+v", eff)
	}
	if m.snap.Params.Criteria.Query != "lathe" || m.debounceGen != 1 {
		t.Errorf("machine = %+v", m)
	}
}

func TestReduce_StaleDebounceIgnored(t *testing.T) {
	m, _ := reduce(idle(), setQuery{query: "la"})
	m, _ = reduce(m, setQuery{query: "lat"})

	same, eff := reduce(m, debounceElapsed{gen: 1})
	if same.snap.State != StateDebouncing || eff != (effect{}) {
		t.Errorf("old timer must be a no-op, got %s %+v", same.snap.State, eff)
	}

	m, eff = reduce(m, debounceElapsed{gen: 2})
	if m.snap.State != StateQuerying || m.snap.Token != 1 || !eff.startQuery {
		t.Errorf("state = %s token = %d effect = %+v", m.snap.State, m.snap.Token, eff)
	}
}

func TestReduce_ResponseTokenMustMatch(t *testing.T) {
	m, _ := reduce(idle(), setQuery{query: "lathe"})
	m, _ = reduce(m, debounceElapsed{gen: 1})

	resp := searchuc.Response{Pagination: pagination.New(1, 10, 3)}
	same, eff := reduce(m, responseArrived{token: 99, resp: resp})
	if !eff.stale || same.snap.State != StateQuerying {
		t.Errorf("foreign token must be stale, got %+v %s", eff, same.snap.State)
	}

	m, eff = reduce(m, responseArrived{token: 1, resp: resp})
	if m.snap.State != StateReady || m.snap.Loading || m.snap.Pagination.Total != 3 || !eff.publish {
		t.Errorf("snapshot = %+v", m.snap)
	}

	// A late duplicate after ready is stale.
	if _, eff = reduce(m, responseArrived{token: 1, resp: resp}); !eff.stale {
		t.Error("response outside querying must be stale")
	}
}

func TestReduce_FailureKeepsResults(t *testing.T) {
	m, _ := reduce(idle(), setQuery{query: "lathe"})
	m, _ = reduce(m, debounceElapsed{gen: 1})
	m, _ = reduce(m, responseArrived{token: 1, resp: searchuc.Response{Pagination: pagination.New(1, 10, 3)}})

	m, _ = reduce(m, setPage{page: 2})
	m, _ = reduce(m, debounceElapsed{gen: m.debounceGen})
	boom := errors.New("index down")
	m, eff := reduce(m, requestFailed{token: 2, err: boom})

	if m.snap.State != StateErrored || !errors.Is(m.snap.Err, boom) || !eff.publish {
		t.Errorf("snapshot = %+v", m.snap)
	}
	if m.snap.Pagination.Total != 3 {
		t.Error("previous results must be retained on error")
	}
}

func TestReduce_MutationWhileQueryingCancels(t *testing.T) {
	m, _ := reduce(idle(), setQuery{query: "lathe"})
	m, _ = reduce(m, debounceElapsed{gen: 1})
	m, eff := reduce(m, setSort{by: order.Title, dir: order.Asc})

	if !eff.cancelInFlight || m.snap.State != StateDebouncing {
		t.Errorf("effect = %+v state = %s", eff, m.snap.State)
	}
	if _, eff = reduce(m, responseArrived{token: 1}); !eff.stale {
		t.Error("response of the cancelled request must be stale")
	}
}

func TestReduce_PageResets(t *testing.T) {
	m := idle()
	m, _ = reduce(m, setPage{page: 3})
	if m.snap.Params.Page != 3 {
		t.Fatalf("page = %d", m.snap.Params.Page)
	}

	tags := []string{"safety"}
	for _, ev := range []event{
		setQuery{query: "x"},
		setFilters{criteria: filter.Criteria{Tags: tags}},
		setSort{by: order.ViewCount},
		setLimit{limit: 20},
	} {
		m, _ = reduce(m, setPage{page: 3})
		m, _ = reduce(m, ev)
		if m.snap.Params.Page != 1 {
			t.Errorf("%T did not reset the page", ev)
		}
	}
	if m.snap.Params.Criteria.Query != "x" {
		t.Error("setFilters must keep the query")
	}
	tags[0] = "mutated"
	if m.snap.Params.Criteria.Tags[0] != "safety" {
		t.Error("filters must be copied into the session")
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	m, _ := reduce(idle(), setFilters{criteria: filter.Criteria{Tags: []string{"a"}}})
	before := m.snap.Params.Criteria.Tags[0]
	_, _ = reduce(m, setFilters{criteria: filter.Criteria{Tags: []string{"b"}}})
	if m.snap.Params.Criteria.Tags[0] != before || m.snap.State != StateDebouncing || m.debounceGen != 1 {
		t.Error("reduce mutated its input")
	}
}
