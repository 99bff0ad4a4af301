package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"veraz/internal/auth"
	"veraz/internal/core"
	"veraz/internal/log"
)

const (
	msgEmptyUsername      = "Por favor, ingrese su usuario"
	msgEmptyPassword      = "Por favor, ingrese su contraseña"
	msgMissingCredentials = "Por favor, ingrese usuario y contraseña"
	msgBadCredentials     = "Credenciales incorrectas"
	msgLoginUnavailable   = "No se pudo validar el usuario. Intente nuevamente."
)

type loginPage struct {
	Username string
	Error    string
}

// loginMessage maps a login failure to the text shown under the form.
func loginMessage(err error) (string, int) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return msgMissingCredentials, http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyUsername):
		return msgEmptyUsername, http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyPassword):
		return msgEmptyPassword, http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials):
		return msgBadCredentials, http.StatusUnauthorized
	default:
		return msgLoginUnavailable, http.StatusInternalServerError
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := s.securityDetector.ExtractClientIP(r)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginPage{Error: msgMissingCredentials})
		return
	}
	username := p.Get("username")
	password := p.GetSecret("password")

	id, err := s.auth.Verify(ctx, username, password)
	if err != nil {
		msg, status := loginMessage(err)
		if status == http.StatusInternalServerError {
			s.events.LogError(ctx, "Login lookup failed", err, log.ComponentAuth, log.OpLogin,
				log.NewFields().WithUser(username, "").WithClientIP(clientIP))
		} else {
			atomic.AddInt64(&s.appMetrics.loginFailures, 1)
			s.events.LogLogin(ctx, username, false, clientIP)
		}
		s.render(w, r, status, "login.html", loginPage{Username: username, Error: msg})
		return
	}

	if err := s.sessions.Issue(w, id); err != nil {
		s.events.LogError(ctx, "Failed to issue session", err, log.ComponentAuth, log.OpLogin,
			log.NewFields().WithUser(id.Username, string(id.Role)))
		s.render(w, r, http.StatusInternalServerError, "login.html", loginPage{Username: username, Error: msgLoginUnavailable})
		return
	}
	atomic.AddInt64(&s.appMetrics.logins, 1)
	s.events.LogLogin(ctx, id.Username, true, clientIP)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/dashboard")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, err := s.sessions.FromRequest(r); err == nil {
		s.logger.InfoContext(r.Context(), "Logout",
			log.FieldUsername, id.Username,
			log.FieldOperation, log.OpLogout)
	}
	s.sessions.Clear(w)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
