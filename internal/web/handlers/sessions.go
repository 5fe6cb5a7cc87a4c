package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/session"
	"github.com/ssematimba/gate-check/internal/store"
)

// eventChannelBuffer sizes per-listener event channels; slow SSE clients drop
// events rather than block the scanning loop.
const eventChannelBuffer = 16

// EventBroadcaster fans session events out to SSE listeners.
type EventBroadcaster struct {
	mu        sync.RWMutex
	listeners []chan session.Event
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan session.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan session.Event, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan session.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event session.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// ManagedSession pairs a scanning session with its event broadcaster.
type ManagedSession struct {
	*session.Session
	Broadcaster *EventBroadcaster
}

// SessionDeps are the stores and policy a new session borrows.
type SessionDeps struct {
	Roster    store.RosterReader
	Templates store.TemplateReader
	Ledger    store.Ledger
	Evaluator *policy.Evaluator
	Locator   session.Locator
}

// SessionManager tracks active kiosk sessions.
type SessionManager struct {
	deps SessionDeps
	opts func(attendance.Population, attendance.Direction) session.Options

	mu       sync.RWMutex
	sessions map[string]*ManagedSession
}

// NewSessionManager creates a session manager. The opts function builds
// session options from the engine configuration.
func NewSessionManager(deps SessionDeps, opts func(attendance.Population, attendance.Direction) session.Options) *SessionManager {
	return &SessionManager{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*ManagedSession),
	}
}

// Create starts a new session for a population and direction.
func (m *SessionManager) Create(population attendance.Population, direction attendance.Direction) (*ManagedSession, error) {
	broadcaster := &EventBroadcaster{}

	sess, err := session.New(session.Deps{
		Roster:    m.deps.Roster,
		Templates: m.deps.Templates,
		Ledger:    m.deps.Ledger,
		Evaluator: m.deps.Evaluator,
		Locator:   m.deps.Locator,
		OnEvent:   broadcaster.SendEvent,
	}, m.opts(population, direction))
	if err != nil {
		return nil, err
	}

	managed := &ManagedSession{Session: sess, Broadcaster: broadcaster}

	m.mu.Lock()
	m.sessions[sess.ID()] = managed
	m.mu.Unlock()

	return managed, nil
}

// Get retrieves a session by id.
func (m *SessionManager) Get(id string) *ManagedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// List returns all tracked sessions.
func (m *SessionManager) List() []*ManagedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]*ManagedSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// StopAll stops every tracked session; used on server shutdown.
func (m *SessionManager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.Stop()
	}
}

// SessionsHandler serves the kiosk session endpoints.
type SessionsHandler struct {
	manager *SessionManager
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(manager *SessionManager) *SessionsHandler {
	return &SessionsHandler{manager: manager}
}

type createSessionRequest struct {
	Population attendance.Population `json:"population"`
	Direction  attendance.Direction  `json:"direction"`
}

type sessionResponse struct {
	ID         string                `json:"id"`
	State      session.State         `json:"state"`
	Population attendance.Population `json:"population"`
	Direction  attendance.Direction  `json:"direction"`
}

func sessionToResponse(s *ManagedSession) sessionResponse {
	return sessionResponse{
		ID:         s.ID(),
		State:      s.State(),
		Population: s.Population(),
		Direction:  s.Direction(),
	}
}

// Create handles POST /sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	managed, err := h.manager.Create(req.Population, req.Direction)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("Session %s started: %s %s", managed.ID(), managed.Population(), managed.Direction())
	respondJSON(w, http.StatusCreated, sessionToResponse(managed))
}

// List handles GET /sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.List()
	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionToResponse(s))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	managed := h.lookup(w, r)
	if managed == nil {
		return
	}
	respondJSON(w, http.StatusOK, sessionToResponse(managed))
}

// Stop handles DELETE /sessions/{id}.
func (h *SessionsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	managed := h.lookup(w, r)
	if managed == nil {
		return
	}

	managed.Stop()
	log.Printf("Session %s stopped", managed.ID())
	respondJSON(w, http.StatusOK, sessionToResponse(managed))
}

type probeRequest struct {
	Kind       attendance.ProbeKind `json:"kind"`
	Payload    string               `json:"payload,omitempty"`
	Descriptor []float32            `json:"descriptor,omitempty"`
}

// Submit handles POST /sessions/{id}/probe. The kiosk frontend decodes frames
// locally and posts one probe per detection.
func (h *SessionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	managed := h.lookup(w, r)
	if managed == nil {
		return
	}

	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Kind != attendance.ProbeCode && req.Kind != attendance.ProbeBiometric {
		respondError(w, http.StatusBadRequest, "kind must be code or biometric")
		return
	}

	event, err := managed.Submit(r.Context(), &attendance.Probe{
		Kind:       req.Kind,
		Payload:    req.Payload,
		Descriptor: req.Descriptor,
	})
	if errors.Is(err, session.ErrCoolingDown) {
		respondError(w, http.StatusTooManyRequests, "session is cooling down")
		return
	}
	if errors.Is(err, session.ErrStopped) {
		respondError(w, http.StatusConflict, "session is stopped")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// Events handles GET /sessions/{id}/events, streaming outcome events via SSE.
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	managed := h.lookup(w, r)
	if managed == nil {
		return
	}

	streamSessionEvents(w, r, managed)
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) *ManagedSession {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing session ID")
		return nil
	}

	managed := h.manager.Get(id)
	if managed == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return managed
}
