package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/ssematimba/gate-check/internal/web/handlers"
)

func (s *Server) setupRoutes(deps handlers.SessionDeps) {
	sessionsHandler := handlers.NewSessionsHandler(s.sessionManager)
	rosterHandler := handlers.NewRosterHandler(deps.Roster)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Roster, deps.Ledger, s.evaluator)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Sessions
		r.Post("/sessions", sessionsHandler.Create)
		r.Get("/sessions", sessionsHandler.List)
		r.Get("/sessions/{id}", sessionsHandler.Get)
		r.Delete("/sessions/{id}", sessionsHandler.Stop)
		r.Post("/sessions/{id}/probe", sessionsHandler.Submit)
		r.Get("/sessions/{id}/events", sessionsHandler.Events)

		// Roster
		r.Get("/roster", rosterHandler.List)

		// Attendance
		r.Get("/attendance", attendanceHandler.ListDay)
		r.Post("/attendance/manual", attendanceHandler.RecordManual)
	})
}
