package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/voltquote/internal/quotes"
)

// writeQuoteError maps workflow errors to HTTP responses.
func (s *server) writeQuoteError(w http.ResponseWriter, err error) {
	var verr *quotes.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.Is(err, quotes.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "quote not found")
	case errors.Is(err, quotes.ErrNotEditable):
		writeError(w, http.StatusConflict, "not_editable", "only draft quotes can be edited")
	case errors.Is(err, quotes.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		s.internalError(w, "quote operation failed", err)
	}
}

func (s *server) handlePreviewQuote(w http.ResponseWriter, r *http.Request) {
	var d quotes.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	priced, err := s.quotes.Preview(r.Context(), d)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priced)
}

func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var d quotes.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	sess, _ := sessionFrom(r.Context())
	q, err := s.quotes.Create(r.Context(), sess.actor(), d)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := s.quotes.List(r.Context(), sess.CompanyID, query)
	if err != nil {
		s.internalError(w, "failed to load quotes", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	q, err := s.quotes.Get(r.Context(), sess.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleUpdateQuote(w http.ResponseWriter, r *http.Request) {
	var d quotes.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	sess, _ := sessionFrom(r.Context())
	q, err := s.quotes.Update(r.Context(), sess.actor(), chi.URLParam(r, "id"), d)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type statusRequest struct {
	Status quotes.Status `json:"status"`
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}
	sess, _ := sessionFrom(r.Context())
	q, err := s.quotes.Transition(r.Context(), sess.actor(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	q, err := s.quotes.Get(r.Context(), sess.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	company, err := s.accounts.CompanyByID(r.Context(), q.CompanyID)
	if err != nil {
		s.internalError(w, "failed to load company", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+q.Reference+`.txt"`)
	_, _ = w.Write([]byte(quotes.RenderText(q, company.Name)))
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	stats, err := s.quotes.Stats(r.Context(), sess.CompanyID)
	if err != nil {
		s.internalError(w, "failed to load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
