package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"veraz/internal/auth"
	"veraz/internal/core"
	"veraz/internal/export"
	"veraz/internal/log"
	"veraz/internal/registry"
	"veraz/internal/services"
)

// queryTimeout bounds one registry round trip plus the pipeline.
const queryTimeout = 20 * time.Second

type dashboardPage struct {
	Username string
	Welcome  string
	IsAdmin  bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		Username: id.Username,
		Welcome:  "✔️ Bienvenido, " + id.Username + "!",
		IsAdmin:  id.Role == core.RoleAdmin,
	})
}

// handleQuery answers the HTMX query form with the result partial.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidCUIT).TriggerQueryFailed().Write(w)
		return
	}

	view, err := s.query(r.Context(), parseCUIT(p.Get("cuit")))
	if err != nil {
		s.queryError(r.Context(), err).TriggerQueryFailed().Write(w)
		return
	}

	qv, err := newQueryView(view)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to build charts", err, log.ComponentAnalytics, log.OpRender, nil)
		InternalServerError("No se pudieron generar los gráficos.").TriggerQueryFailed().Write(w)
		return
	}
	w.Header().Set("HX-Trigger", `{"query:completed":{"cuit":"`+view.CUIT+`"}}`)
	s.render(w, r, http.StatusOK, "query_result.html", qv)
}

// handleAPIQuery is the JSON form of the dashboard view.
func (s *Server) handleAPIQuery(w http.ResponseWriter, r *http.Request) {
	view, err := s.query(r.Context(), parseCUIT(r.URL.Query().Get("cuit")))
	if err != nil {
		status, msg := queryErrorStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	writeJSON(w, http.StatusOK, newAPIView(view))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	data, err := s.dashboard.Export(ctx, id, parseCUIT(r.URL.Query().Get("cuit")))
	if err != nil {
		status, msg := queryErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.events.LogError(ctx, "Export failed", err, log.ComponentExport, log.OpExport,
				log.NewFields().WithUser(id.Username, string(id.Role)))
		}
		http.Error(w, msg, status)
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) query(ctx context.Context, cuit string) (services.DashboardView, error) {
	id, _ := auth.IdentityFrom(ctx)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	view, err := s.dashboard.Query(ctx, id, cuit)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.queryFailures, 1)
		return services.DashboardView{}, err
	}
	atomic.AddInt64(&s.appMetrics.queries, 1)
	return view, nil
}

// queryErrorStatus maps a query failure to a status and the user message.
func queryErrorStatus(err error) (int, string) {
	var regErr *registry.Error
	switch {
	case errors.Is(err, core.ErrInvalidCUIT):
		return http.StatusBadRequest, msgInvalidCUIT
	case errors.Is(err, core.ErrNoData):
		return http.StatusNotFound, msgNoData
	case errors.As(err, &regErr):
		return http.StatusBadGateway, "Error: " + regErr.Message()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Error: la API del BCRA no respondió a tiempo."
	default:
		return http.StatusBadGateway, "Error: " + err.Error()
	}
}

func (s *Server) queryError(ctx context.Context, err error) *HTMXResponseBuilder {
	status, msg := queryErrorStatus(err)
	switch status {
	case http.StatusBadRequest:
		return BadRequestError(msg)
	case http.StatusNotFound:
		return NotFoundError(msg)
	}
	id, _ := auth.IdentityFrom(ctx)
	s.events.LogError(ctx, "Registry query failed", err, log.ComponentRegistry, log.OpFetch,
		log.NewFields().WithUser(id.Username, string(id.Role)))
	return AlertResponse(status, "danger", msg)
}
