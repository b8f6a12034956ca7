package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/gateway/middleware"
	"github.com/santerelay/platform/pkg/patients"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.Handle("/patients/{id}/assess",
		middleware.RequireRole("nurse", "doctor")(http.HandlerFunc(h.handleAssess))).
		Methods(http.MethodPost)
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	actor := uuid.Nil
	if claims, ok := middleware.UserFromContext(r.Context()); ok {
		actor = claims.UserID
	}

	patient, referral, err := h.service.Assess(r.Context(), patientID, actor)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to assess patient")
		http.Error(w, "failed to assess patient", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{"patient": patient}
	if referral != nil {
		response["referral"] = referral
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
