package facility

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/facilities", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/facilities", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/facilities/{id}", h.handleGet).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFacilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Category == "" {
		http.Error(w, "name and category are required", http.StatusBadRequest)
		return
	}

	fac, err := h.repo.Create(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create facility")
		http.Error(w, "failed to create facility", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"facility": fac})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	category := models.FacilityCategory(r.URL.Query().Get("category"))
	facilities, err := h.repo.ListFacilities(r.Context(), category)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list facilities")
		http.Error(w, "failed to list facilities", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": facilities})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid facility id", http.StatusBadRequest)
		return
	}
	fac, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "facility not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get facility")
		http.Error(w, "failed to get facility", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"facility": fac})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
