package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssematimba/gate-check/internal/attendance"
)

func TestRosterList(t *testing.T) {
	f := newTestFixture(t)
	f.roster.AddPerson(attendance.Person{ID: 1, Name: "Alice", Population: attendance.PopulationStudent})
	f.roster.AddPerson(attendance.Person{ID: 2, Name: "Bob", Population: attendance.PopulationStudent})
	f.roster.AddPerson(attendance.Person{ID: 3, Name: "Carol", Population: attendance.PopulationTeacher})
	handler := NewRosterHandler(f.roster)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster?population=student", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var people []attendance.Person
	if err := json.NewDecoder(w.Body).Decode(&people); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(people) != 2 {
		t.Errorf("Expected 2 students, got %d", len(people))
	}
	for _, p := range people {
		if p.Population != attendance.PopulationStudent {
			t.Errorf("Listed person from wrong population: %s", p.Population)
		}
	}
}

func TestRosterList_InvalidPopulation(t *testing.T) {
	f := newTestFixture(t)
	handler := NewRosterHandler(f.roster)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster?population=ghost", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRosterList_Search(t *testing.T) {
	f := newTestFixture(t)
	f.roster.AddPerson(attendance.Person{ID: 1, Name: "Jan Novák", Population: attendance.PopulationStudent})
	f.roster.AddPerson(attendance.Person{ID: 2, Name: "Bob", Population: attendance.PopulationStudent})
	handler := NewRosterHandler(f.roster)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster?population=student&q=jan-novak", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var people []attendance.Person
	if err := json.NewDecoder(w.Body).Decode(&people); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(people) != 1 || people[0].ID != 1 {
		t.Errorf("Expected to find Jan Novák, got %+v", people)
	}
}

func TestRosterList_EmptyIsArray(t *testing.T) {
	f := newTestFixture(t)
	handler := NewRosterHandler(f.roster)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster?population=teacher", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", body)
	}
}
