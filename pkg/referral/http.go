package referral

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
	service *Service
	repo    *Repository
}

func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Register mounts the referral routes. Nurses open referrals, doctors accept
// them; either side may send or complete a transfer.
func (h *Handler) Register(r *mux.Router) {
	nurse := middleware.RequireRole("nurse")
	doctor := middleware.RequireRole("doctor")
	staff := middleware.RequireRole("nurse", "doctor")

	r.Handle("", nurse(http.HandlerFunc(h.handleCreate))).Methods(http.MethodPost)
	r.HandleFunc("", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{id}/events", h.handleEvents).Methods(http.MethodGet)
	r.Handle("/{id}/send", staff(http.HandlerFunc(h.handleSend))).Methods(http.MethodPost)
	r.Handle("/{id}/accept", doctor(http.HandlerFunc(h.handleAccept))).Methods(http.MethodPost)
	r.Handle("/{id}/transfer", staff(http.HandlerFunc(h.handleTransfer))).Methods(http.MethodPost)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.PatientID == uuid.Nil || req.ToFacilityID == uuid.Nil {
		http.Error(w, "patient_id and to_facility_id are required", http.StatusBadRequest)
		return
	}

	ref, err := h.service.Create(r.Context(), req, resolveActor(r))
	if err != nil {
		writeError(w, "failed to create referral", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"referral": ref})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: models.ReferralStatus(r.URL.Query().Get("status")),
		Limit:  parseLimit(r, 100),
	}

	// Nurses see referrals leaving their facility, doctors those arriving.
	if claims, ok := middleware.UserFromContext(r.Context()); ok && claims.FacilityID != nil {
		switch claims.Role {
		case "nurse":
			filter.FromFacilityID = claims.FacilityID
		case "doctor":
			filter.ToFacilityID = claims.FacilityID
		}
	}

	refs, err := h.service.List(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list referrals")
		http.Error(w, "failed to list referrals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": refs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	ref, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get referral", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": ref})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	events, err := h.repo.ListEvents(r.Context(), id)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list referral events")
		http.Error(w, "failed to list referral events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	ref, err := h.service.Send(r.Context(), id)
	if err != nil {
		writeError(w, "failed to send referral", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": ref})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	ref, err := h.service.Accept(r.Context(), id, resolveActor(r))
	if err != nil {
		writeError(w, "failed to accept referral", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": ref})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	ref, err := h.service.Transfer(r.Context(), id)
	if err != nil {
		writeError(w, "failed to transfer referral", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": ref})
}

func writeError(w http.ResponseWriter, msg string, err error) {
	var transition *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &transition):
		http.Error(w, transition.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidDestination), errors.Is(err, ErrInvalidOrigin):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func resolveActor(r *http.Request) uuid.UUID {
	if claims, ok := middleware.UserFromContext(r.Context()); ok {
		return claims.UserID
	}
	return uuid.Nil
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
