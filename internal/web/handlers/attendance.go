package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/session"
	"github.com/ssematimba/gate-check/internal/store"
)

// AttendanceHandler serves the day view and manual record endpoints.
type AttendanceHandler struct {
	roster    store.RosterReader
	ledger    store.Ledger
	evaluator *policy.Evaluator
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(roster store.RosterReader, ledger store.Ledger, evaluator *policy.Evaluator) *AttendanceHandler {
	return &AttendanceHandler{roster: roster, ledger: ledger, evaluator: evaluator}
}

// ListDay handles GET /attendance?population=student[&date=YYYY-MM-DD].
// Date defaults to today.
func (h *AttendanceHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	population, ok := populationParam(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = attendance.DateOf(time.Now())
	} else if _, err := time.Parse(attendance.DateFormat, date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	outcomes, err := h.ledger.ListDay(r.Context(), population, date)
	if err != nil {
		log.Printf("Attendance day query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "attendance query failed")
		return
	}

	if outcomes == nil {
		outcomes = []attendance.Outcome{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"population": population,
		"date":       date,
		"records":    outcomes,
	})
}

type manualRecordRequest struct {
	Population attendance.Population `json:"population"`
	PersonID   int64                 `json:"person_id"`
	Direction  attendance.Direction  `json:"direction"`
}

// RecordManual handles POST /attendance/manual. Operators use it when a scan
// keeps failing; the record goes through the same time classification and
// idempotency as a scan.
func (h *AttendanceHandler) RecordManual(w http.ResponseWriter, r *http.Request) {
	var req manualRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	outcome, err := session.RecordManual(
		r.Context(), h.evaluator, h.roster, h.ledger,
		req.Population, req.PersonID, req.Direction, time.Now(),
	)
	switch {
	case errors.Is(err, attendance.ErrPersonNotFound):
		respondError(w, http.StatusNotFound, "person not found")
		return
	case errors.Is(err, attendance.ErrDuplicateRecord):
		respondError(w, http.StatusConflict, "attendance already recorded")
		return
	case err != nil:
		if req.Population.Valid() && req.Direction.Valid() {
			log.Printf("Manual record failed for person %d: %v", req.PersonID, err)
			respondError(w, http.StatusInternalServerError, "manual record failed")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, outcome)
}
