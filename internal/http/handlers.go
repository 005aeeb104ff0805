package http

import (
	"net/http"

	"hostel/internal/analytics"
	"hostel/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "no route for " + r.Method + " " + r.URL.Path})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r, s.now())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	summary, hit, err := s.dashboards.Get(month.String(), func() (analytics.DashboardSummary, error) {
		snap, err := s.svc.Snapshot(r.Context())
		if err != nil {
			return analytics.DashboardSummary{}, err
		}
		return analytics.Dashboard(snap, month), nil
	})
	s.recordLookup(w, "dashboard", hit)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r, s.now())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	report, hit, err := s.reports.Get(month.String(), func() (analytics.AnalyticsReport, error) {
		snap, err := s.svc.Snapshot(r.Context())
		if err != nil {
			return analytics.AnalyticsReport{}, err
		}
		return analytics.Report(snap, month), nil
	})
	s.recordLookup(w, "analytics", hit)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) recordLookup(w http.ResponseWriter, name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	w.Header().Set("X-Cache", result)
	s.metrics.CacheLookups.WithLabelValues(name, result).Inc()
}
