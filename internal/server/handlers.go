package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"price_tracker/internal/domain"
)

const userIDHeader = "X-User-ID"

type trackRequest struct {
	ProductURL string `json:"product_url"`
	AlertPrice *int64 `json:"alert_price,omitempty"`
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	snap, err := s.tracker.Preview(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	product, err := s.tracker.Track(r.Context(), userID, req.ProductURL, req.AlertPrice)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	products, err := s.tracker.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	if err := s.tracker.Untrack(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	samples, err := s.tracker.History(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		s.writeError(w, http.StatusUnauthorized, errors.New("missing "+userIDHeader+" header"))
		return "", false
	}
	return userID, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		fetchErr      *domain.FetchError
		extractionErr *domain.ExtractionError
	)

	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrProductNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.As(err, &fetchErr):
		s.writeError(w, http.StatusBadGateway, err)
	case errors.As(err, &extractionErr):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
