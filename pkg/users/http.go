package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/gateway/auth"
	"github.com/santerelay/platform/pkg/gateway/middleware"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	repo *Repository
	jwt  *auth.JWTManager
}

func NewHandler(repo *Repository, jwt *auth.JWTManager) *Handler {
	return &Handler{repo: repo, jwt: jwt}
}

// Register mounts the unauthenticated auth endpoints.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
}

// RegisterProtected mounts endpoints that require a valid token.
func (h *Handler) RegisterProtected(r *mux.Router) {
	r.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		http.Error(w, "username, email, and password are required", http.StatusBadRequest)
		return
	}
	if req.Role != "nurse" && req.Role != "doctor" {
		http.Error(w, "role must be nurse or doctor", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.WithError(err).Error("failed to hash password")
		http.Error(w, "failed to register user", http.StatusInternalServerError)
		return
	}

	user, err := h.repo.Create(r.Context(), models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		FacilityID:   req.FacilityID,
		Active:       true,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		logger.Log.WithError(err).Error("failed to create user")
		http.Error(w, "failed to register user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.repo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		http.Error(w, "account disabled", http.StatusForbidden)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed to issue token")
		http.Error(w, "failed to login", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.repo.Get(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
