package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/catalogue"
)

// activeOnly hides retired products from everyone but admins.
func activeOnly(r *http.Request) bool {
	sess, ok := sessionFrom(r.Context())
	return !ok || sess.Role != accounts.RoleAdmin
}

func (s *server) handleListBatteries(w http.ResponseWriter, r *http.Request) {
	batteries, err := s.catalogue.ListBatteries(r.Context(), activeOnly(r))
	if err != nil {
		s.internalError(w, "failed to load batteries", err)
		return
	}
	writeJSON(w, http.StatusOK, batteries)
}

func (s *server) handleListInverters(w http.ResponseWriter, r *http.Request) {
	inverters, err := s.catalogue.ListInverters(r.Context(), activeOnly(r))
	if err != nil {
		s.internalError(w, "failed to load inverters", err)
		return
	}
	writeJSON(w, http.StatusOK, inverters)
}

func (s *server) handleListManufacturers(w http.ResponseWriter, r *http.Request) {
	manufacturers, err := s.catalogue.ListManufacturers(r.Context())
	if err != nil {
		s.internalError(w, "failed to load manufacturers", err)
		return
	}
	writeJSON(w, http.StatusOK, manufacturers)
}

func (s *server) handleCreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var m catalogue.Manufacturer
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	m.ID = ""
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if _, err := s.catalogue.ManufacturerByName(r.Context(), m.Name); err == nil {
		writeError(w, http.StatusConflict, "conflict", "manufacturer already exists")
		return
	} else if !errors.Is(err, catalogue.ErrNotFound) {
		s.internalError(w, "failed to create manufacturer", err)
		return
	}

	created, err := s.catalogue.CreateManufacturer(r.Context(), m)
	if err != nil {
		s.internalError(w, "failed to create manufacturer", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleCreateBattery(w http.ResponseWriter, r *http.Request) {
	var b catalogue.Battery
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	b.ID = ""
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	created, err := s.catalogue.CreateBattery(r.Context(), b)
	if errors.Is(err, catalogue.ErrUnknownManufacturer) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to create battery", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateBattery(w http.ResponseWriter, r *http.Request) {
	var b catalogue.Battery
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	b.ID = chi.URLParam(r, "id")
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	updated, err := s.catalogue.UpdateBattery(r.Context(), b)
	if errors.Is(err, catalogue.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "battery not found")
		return
	}
	if errors.Is(err, catalogue.ErrUnknownManufacturer) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to update battery", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleCreateInverter(w http.ResponseWriter, r *http.Request) {
	var i catalogue.Inverter
	if err := decodeJSON(w, r, &i); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	i.ID = ""
	if err := i.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	created, err := s.catalogue.CreateInverter(r.Context(), i)
	if errors.Is(err, catalogue.ErrUnknownManufacturer) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to create inverter", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateInverter(w http.ResponseWriter, r *http.Request) {
	var i catalogue.Inverter
	if err := decodeJSON(w, r, &i); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	i.ID = chi.URLParam(r, "id")
	if err := i.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	updated, err := s.catalogue.UpdateInverter(r.Context(), i)
	if errors.Is(err, catalogue.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "inverter not found")
		return
	}
	if errors.Is(err, catalogue.ErrUnknownManufacturer) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to update inverter", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) internalError(w http.ResponseWriter, message string, err error) {
	s.logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, "internal", message)
}
