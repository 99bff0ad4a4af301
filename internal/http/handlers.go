package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady runs every dependency check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{"templates": "ok"}

	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	if s.snapshots != nil {
		st := s.snapshots.Stats()
		checks["snapshot_cache"] = map[string]any{"entries": st.Size, "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_microseconds", "gauge", "Moving average response time", traceMetrics.AverageResponseTime)
	metric("registry_queries_total", "counter", "Dashboard queries served", atomic.LoadInt64(&s.appMetrics.queries))
	metric("registry_query_failures_total", "counter", "Dashboard queries that ended in an error", atomic.LoadInt64(&s.appMetrics.queryFailures))
	metric("exports_total", "counter", "Pivot workbooks exported", atomic.LoadInt64(&s.appMetrics.exports))
	metric("logins_total", "counter", "Successful logins", atomic.LoadInt64(&s.appMetrics.logins))
	metric("login_failures_total", "counter", "Rejected logins", atomic.LoadInt64(&s.appMetrics.loginFailures))

	if s.snapshots != nil {
		st := s.snapshots.Stats()
		metric("snapshot_cache_entries", "gauge", "Cached registry snapshots", st.Size)
		metric("snapshot_cache_hits_total", "counter", "Snapshot cache hits", st.Hits)
		metric("snapshot_cache_misses_total", "counter", "Snapshot cache misses", st.Misses)
	}

	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests blocked", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
