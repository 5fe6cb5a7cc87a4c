package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/session"
	"github.com/ssematimba/gate-check/internal/store/mock"
)

// testFixture bundles the mock stores and a session manager for handler tests.
type testFixture struct {
	roster    *mock.Roster
	templates *mock.Templates
	ledger    *mock.Ledger
	evaluator *policy.Evaluator
	manager   *SessionManager
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	start, err := policy.ParseDayTime("08:00")
	if err != nil {
		t.Fatalf("failed to parse start: %v", err)
	}
	end, err := policy.ParseDayTime("17:00")
	if err != nil {
		t.Fatalf("failed to parse end: %v", err)
	}

	f := &testFixture{
		roster:    mock.NewRoster(),
		templates: mock.NewTemplates(),
		ledger:    mock.NewLedger(),
		evaluator: policy.NewEvaluator(policy.Schedule{
			Start:                start,
			LateThresholdMinutes: 15,
			End:                  end,
		}, nil),
	}

	f.manager = NewSessionManager(SessionDeps{
		Roster:    f.roster,
		Templates: f.templates,
		Ledger:    f.ledger,
		Evaluator: f.evaluator,
	}, func(population attendance.Population, direction attendance.Direction) session.Options {
		return session.Options{Population: population, Direction: direction}
	})

	return f
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
