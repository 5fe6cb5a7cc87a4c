package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/session"
)

func createSession(t *testing.T, f *testFixture, population, direction string) sessionResponse {
	t.Helper()
	handler := NewSessionsHandler(f.manager)

	body := `{"population": "` + population + `", "direction": "` + direction + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestSessionsCreate(t *testing.T) {
	f := newTestFixture(t)

	resp := createSession(t, f, "student", "check_in")

	if resp.ID == "" {
		t.Error("Expected non-empty session id")
	}
	if resp.State != session.StateIdle {
		t.Errorf("Expected state idle, got %s", resp.State)
	}
	if resp.Population != attendance.PopulationStudent {
		t.Errorf("Expected population student, got %s", resp.Population)
	}
	if resp.Direction != attendance.DirectionCheckIn {
		t.Errorf("Expected direction check_in, got %s", resp.Direction)
	}
}

func TestSessionsCreate_InvalidPopulation(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	body := `{"population": "visitor", "direction": "check_in"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSessionsCreate_InvalidBody(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSessionsGet_NotFound(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil)
	req = requestWithChiParams(req, map[string]string{"id": "nope"})
	w := httptest.NewRecorder()
	handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSessionsList(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	createSession(t, f, "student", "check_in")
	createSession(t, f, "teacher", "check_out")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp []sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(resp))
	}
}

func TestSessionsSubmit_CodeProbe(t *testing.T) {
	f := newTestFixture(t)
	f.roster.AddPerson(attendance.Person{ID: 7, Name: "Alice", Population: attendance.PopulationStudent})
	handler := NewSessionsHandler(f.manager)

	sess := createSession(t, f, "student", "check_in")

	body := `{"kind": "code", "payload": "7"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/probe", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": sess.ID})
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var event session.Event
	if err := json.NewDecoder(w.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Type != session.EventAccepted {
		t.Errorf("Expected accepted event, got %s (reason %s)", event.Type, event.Reason)
	}
	if event.Outcome == nil || event.Outcome.PersonID != 7 {
		t.Errorf("Expected outcome for person 7, got %+v", event.Outcome)
	}
	if f.ledger.Count() != 1 {
		t.Errorf("Expected 1 ledger record, got %d", f.ledger.Count())
	}
}

func TestSessionsSubmit_UnknownPerson(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	sess := createSession(t, f, "student", "check_in")

	body := `{"kind": "code", "payload": "99"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/probe", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": sess.ID})
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var event session.Event
	if err := json.NewDecoder(w.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Type != session.EventRejected {
		t.Errorf("Expected rejected event, got %s", event.Type)
	}
	if event.Reason != attendance.ReasonPersonNotFound {
		t.Errorf("Expected reason person_not_found, got %s", event.Reason)
	}
}

func TestSessionsSubmit_InvalidKind(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	sess := createSession(t, f, "student", "check_in")

	body := `{"kind": "telepathy"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/probe", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": sess.ID})
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSessionsSubmit_CooldownReturns429(t *testing.T) {
	f := newTestFixture(t)
	f.roster.AddPerson(attendance.Person{ID: 7, Name: "Alice", Population: attendance.PopulationStudent})
	handler := NewSessionsHandler(f.manager)

	sess := createSession(t, f, "student", "check_in")

	submit := func() *httptest.ResponseRecorder {
		body := `{"kind": "code", "payload": "7"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/probe", strings.NewReader(body))
		req = requestWithChiParams(req, map[string]string{"id": sess.ID})
		w := httptest.NewRecorder()
		handler.Submit(w, req)
		return w
	}

	if w := submit(); w.Code != http.StatusOK {
		t.Fatalf("Expected first probe to resolve, got %d", w.Code)
	}
	if w := submit(); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 during cooldown, got %d", w.Code)
	}
}

func TestSessionsStop(t *testing.T) {
	f := newTestFixture(t)
	handler := NewSessionsHandler(f.manager)

	sess := createSession(t, f, "student", "check_in")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sess.ID, nil)
	req = requestWithChiParams(req, map[string]string{"id": sess.ID})
	w := httptest.NewRecorder()
	handler.Stop(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.State != session.StateStopped {
		t.Errorf("Expected state stopped, got %s", resp.State)
	}

	// Probes after stop are refused.
	body := `{"kind": "code", "payload": "7"}`
	probeReq := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/probe", strings.NewReader(body))
	probeReq = requestWithChiParams(probeReq, map[string]string{"id": sess.ID})
	probeW := httptest.NewRecorder()
	handler.Submit(probeW, probeReq)

	if probeW.Code != http.StatusConflict {
		t.Errorf("Expected status 409 after stop, got %d", probeW.Code)
	}
}

func TestEventBroadcaster(t *testing.T) {
	b := &EventBroadcaster{}

	ch := b.AddListener()
	b.SendEvent(session.Event{ID: "ev1", Type: session.EventAccepted})

	select {
	case ev := <-ch:
		if ev.ID != "ev1" {
			t.Errorf("Expected event ev1, got %s", ev.ID)
		}
	default:
		t.Fatal("Expected buffered event")
	}

	b.RemoveListener(ch)
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after removal")
	}
}
