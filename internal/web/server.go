// Package web serves the dashboard API: enqueue and inspect reservation
// tasks, view the availability snapshot, and hand the worker its portal
// credentials over a loopback-only endpoint.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/parking-sniper/internal/db"
	"github.com/example/parking-sniper/internal/portal"
	"github.com/example/parking-sniper/internal/store"
	"github.com/rs/zerolog"
)

type Server struct {
	Auth  *Auth
	Tasks *store.TaskRepo
	Avail *store.AvailabilityRepo
	Creds *store.CredRepo
	Log   zerolog.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.HandleFunc("GET /api/reservations", s.Auth.Require(s.handleListReservations))
	mux.HandleFunc("POST /api/reservations", s.Auth.Require(s.handleCreateReservation))
	mux.HandleFunc("POST /api/reservations/{id}/delete", s.Auth.Require(s.handleRequestDelete))
	mux.HandleFunc("GET /api/availability", s.Auth.Require(s.handleAvailability))
	mux.HandleFunc("POST /api/credentials", s.Auth.Require(s.handleSetCredentials))

	// Consumed by the worker only; never exposed past loopback.
	mux.HandleFunc("GET /api/internal/creds", s.handleInternalCreds)

	return s.logging(mux)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	id, err := s.Auth.Authenticate(ctx, strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type taskJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	PlateNumber string `json:"plate_number"`
	Status      string `json:"status"`
	RetryLog    string `json:"retry_log"`
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Tasks.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskJSON{
			ID:          t.ID,
			Date:        t.Date,
			PlateNumber: t.PlateNumber,
			Status:      string(t.Status),
			RetryLog:    t.RetryLog,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Date  string `json:"date"`
		Plate string `json:"plate_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id, err := s.Tasks.Create(r.Context(), strings.TrimSpace(in.Date), strings.TrimSpace(in.Plate))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "message": "day pass scheduled"})
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.Tasks.RequestDelete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delete requested"})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	days, err := s.Avail.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type dayJSON struct {
		Date  string `json:"date"`
		State string `json:"state"`
	}
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayJSON{Date: d.Date, State: string(d.State)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetCredentials(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	if err := s.Creds.Set(r.Context(), in.Email, in.Password); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleInternalCreds(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		writeError(w, http.StatusForbidden, "loopback only")
		return
	}
	email, password, err := s.Creds.Get(r.Context())
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "portal credentials not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, portal.Credentials{Email: email, Password: password})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Start serves h until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}
