package handlers

import (
	"log"
	"net/http"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/store"
)

// RosterHandler serves roster lookups for the kiosk operator view.
type RosterHandler struct {
	roster store.RosterReader
}

// NewRosterHandler creates a roster handler.
func NewRosterHandler(roster store.RosterReader) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// populationParam reads and validates the population query parameter.
func populationParam(w http.ResponseWriter, r *http.Request) (attendance.Population, bool) {
	population := attendance.Population(r.URL.Query().Get("population"))
	if !population.Valid() {
		respondError(w, http.StatusBadRequest, "population must be student or teacher")
		return "", false
	}
	return population, true
}

// List handles GET /roster?population=student[&q=name].
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	population, ok := populationParam(w, r)
	if !ok {
		return
	}

	var (
		people []attendance.Person
		err    error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		people, err = h.roster.SearchByName(r.Context(), population, q)
	} else {
		people, err = h.roster.List(r.Context(), population)
	}
	if err != nil {
		log.Printf("Roster query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "roster query failed")
		return
	}

	if people == nil {
		people = []attendance.Person{}
	}
	respondJSON(w, http.StatusOK, people)
}
