package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reftourney/internal/auth"
	"reftourney/internal/tournament"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log        *slog.Logger
	auth       *auth.TokenVerifier
	tournament *tournament.Service
	mux        *chi.Mux
}

func New(logger *slog.Logger, verifier *auth.TokenVerifier, svc *tournament.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:        logger,
		auth:       verifier,
		tournament: svc,
		mux:        chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/activations", s.handleActivate)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/participants/{user_id}", s.handleReferralInfo)
		r.Get("/participants/{user_id}/rank", s.handleRank)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Verify(auth.BearerToken(r.Header.Get("Authorization"))); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Payload     string `json:"payload"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.tournament.Activate(r.Context(), tournament.ActivationRequest{
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		Payload:     in.Payload,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tournament.Leaderboard())
}

func (s *Server) handleReferralInfo(w http.ResponseWriter, r *http.Request) {
	out, err := s.tournament.ReferralInfo(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	rank, found, err := s.tournament.Rank(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, tournament.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rank": rank})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tournament.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tournament.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tournament.ErrUnavailable):
		s.log.Error("storage unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, tournament.ErrUnavailable.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
