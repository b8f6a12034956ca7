package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/gateway/middleware"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.handleGet).Methods(http.MethodGet)
	r.Handle("/patients/{id}/vitals",
		middleware.RequireRole("nurse", "doctor")(http.HandlerFunc(h.handleUpdateVitals))).
		Methods(http.MethodPut)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.FacilityID == uuid.Nil {
		http.Error(w, "first_name, last_name, and facility_id are required", http.StatusBadRequest)
		return
	}

	registeredBy := uuid.Nil
	if claims, ok := middleware.UserFromContext(r.Context()); ok {
		registeredBy = claims.UserID
	}

	patient, err := h.repo.Create(r.Context(), req, registeredBy)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create patient")
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": patient})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var facilityID *uuid.UUID
	if raw := r.URL.Query().Get("facility_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid facility_id", http.StatusBadRequest)
			return
		}
		facilityID = &id
	}

	list, err := h.repo.List(r.Context(), facilityID, parseLimit(r, 100))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	patient, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": patient})
}

func (h *Handler) handleUpdateVitals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	var req models.UpdateVitalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.UpdateVitals(r.Context(), id, req.Vitals)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to update vitals")
		http.Error(w, "failed to update vitals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": patient})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
