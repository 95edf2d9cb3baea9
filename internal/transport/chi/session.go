package chi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/logger"
	"github.com/kailas-cloud/mediasearch/internal/usecase/session"
)

const (
	wsWriteWait      = 5 * time.Second
	wsMaxMessageSize = 64 << 10
)

// Session socket message types.
const (
	MsgSetQuery    = "set_query"
	MsgSetFilters  = "set_filters"
	MsgSetSort     = "set_sort"
	MsgSetPage     = "set_page"
	MsgSetLimit    = "set_limit"
	MsgSetIncludes = "set_includes"

	MsgSnapshot = "snapshot"
	MsgError    = "error"
)

// SessionMessage is a client command on the session socket.
type SessionMessage struct {
	Type               string      `json:"type"`
	Query              string      `json:"query,omitempty"`
	Filters            *FiltersDTO `json:"filters,omitempty"`
	SortBy             string      `json:"sort_by,omitempty"`
	SortOrder          string      `json:"sort_order,omitempty"`
	Page               int         `json:"page,omitempty"`
	Limit              int         `json:"limit,omitempty"`
	IncludeFacets      bool        `json:"include_facets,omitempty"`
	IncludeSuggestions bool        `json:"include_suggestions,omitempty"`
}

// SessionSnapshot is pushed to the client after every state change.
type SessionSnapshot struct {
	Type            string            `json:"type"`
	SessionID       string            `json:"session_id"`
	State           string            `json:"state"`
	Loading         bool              `json:"loading"`
	Query           string            `json:"query"`
	Filters         FiltersDTO        `json:"filters"`
	SortBy          string            `json:"sort_by"`
	SortOrder       string            `json:"sort_order"`
	Results         []SearchResultDTO `json:"results"`
	Facets          []FacetDTO        `json:"facets"`
	Suggestions     []SuggestionDTO   `json:"suggestions,omitempty"`
	Pagination      PaginationDTO     `json:"pagination"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Error           *ErrorResponse    `json:"error,omitempty"`
}

// SessionError reports a rejected client message.
type SessionError struct {
	Type  string        `json:"type"`
	Error ErrorResponse `json:"error"`
}

// SessionSocket handles GET /api/v1/sessions/ws. Each connection owns one session controller.
func (s *Server) SessionSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logger.FromContext(r.Context()).Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	id := r.URL.Query().Get("session_id")
	if id == "" {
		id = uuid.NewString()
	}
	log := logger.FromContext(r.Context()).With(zap.String("session_id", id))

	ctrl := session.NewController(r.Context(), id, s.search, s.sessionCfg, log)
	defer ctrl.Close()
	snaps, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snaps {
			if err := write(snapshotToDTO(snap)); err != nil {
				return
			}
		}
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	for {
		_, rd, err := conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Session socket closed", zap.Error(err))
			}
			break
		}
		var msg SessionMessage
		dec := json.NewDecoder(rd)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&msg); err != nil {
			err = domain.InvalidQuery("invalid message: %v", err)
			if werr := write(SessionError{Type: MsgError, Error: errorPayload(err)}); werr != nil {
				break
			}
			continue
		}
		if err := applyMessage(ctrl, msg); err != nil {
			if werr := write(SessionError{Type: MsgError, Error: errorPayload(err)}); werr != nil {
				break
			}
		}
	}

	ctrl.Close()
	<-done
}

// applyMessage forwards one client command to the controller.
func applyMessage(ctrl *session.Controller, msg SessionMessage) error {
	switch msg.Type {
	case MsgSetQuery:
		ctrl.SetQuery(msg.Query)
	case MsgSetFilters:
		ctrl.SetFilters(criteriaFromDTO("", msg.Filters))
	case MsgSetSort:
		ctrl.SetSort(order.Field(msg.SortBy), order.Direction(msg.SortOrder))
	case MsgSetPage:
		ctrl.SetPage(msg.Page)
	case MsgSetLimit:
		ctrl.SetLimit(msg.Limit)
	case MsgSetIncludes:
		ctrl.SetIncludes(msg.IncludeFacets, msg.IncludeSuggestions)
	case "":
		return domain.InvalidQuery("message type is required")
	default:
		return domain.InvalidQuery("unknown message type %q", msg.Type)
	}
	return nil
}

func snapshotToDTO(snap session.Snapshot) SessionSnapshot {
	p := snap.Params
	out := SessionSnapshot{
		Type:            MsgSnapshot,
		SessionID:       snap.SessionID,
		State:           string(snap.State),
		Loading:         snap.Loading,
		Query:           p.Criteria.Query,
		Filters:         filtersToDTO(p.Criteria),
		SortBy:          string(p.SortBy),
		SortOrder:       string(p.SortOrder),
		Results:         resultsToDTO(snap.Results),
		Facets:          facetsToDTO(snap.Facets),
		Pagination:      paginationToDTO(snap.Pagination),
		ExecutionTimeMs: snap.ExecutionTime.Milliseconds(),
	}
	if len(snap.Suggestions) > 0 {
		out.Suggestions = suggestionsToDTO(snap.Suggestions)
	}
	if snap.Err != nil {
		e := errorPayload(snap.Err)
		out.Error = &e
	}
	return out
}
