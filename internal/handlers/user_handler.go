package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dayoung-p/maumlog/internal/config"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/services"
	jwtutil "github.com/dayoung-p/maumlog/pkg/jwt"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles HTTP requests for registration, login and profile.
type UserHandler struct {
	Auth     *services.AuthService
	Records  *services.RecordService
	Chat     *services.ChatService
	Registry *services.ContextRegistry
	Config   *config.Config
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(auth *services.AuthService, records *services.RecordService, chat *services.ChatService, registry *services.ContextRegistry, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Auth:     auth,
		Records:  records,
		Chat:     chat,
		Registry: registry,
		Config:   cfg,
	}
}

// RegisterHandler handles user registration.
func (h *UserHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("RegisterHandler called")
	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("Failed to decode registration request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	cred, err := h.Auth.Register(r.Context(), req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUser) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.WithError(err).Error("Failed to register user")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"username": cred.Username,
		"name":     cred.Name,
		"email":    cred.Email,
	})
}

// LoginHandler handles user login and issues a JWT.
func (h *UserHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LoginHandler called")
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.WithError(err).Warn("Failed to decode login request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	name, err := h.Auth.Authenticate(r.Context(), credentials.Username, credentials.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		log.WithError(err).Error("Login failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	token, err := jwtutil.GenerateToken(credentials.Username, name, h.Config.JWTSecret, h.Config.TokenExpiry)
	if err != nil {
		log.WithError(err).Error("Failed to generate JWT token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":    token,
		"username": credentials.Username,
		"name":     name,
	})
}

// MeHandler returns the authenticated user's record.
func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		log.WithError(err).Error("Failed to load user record")
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// UpdateProfileHandler updates the user's profile fields.
func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("UpdateProfileHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var profile models.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		log.WithError(err).Warn("Failed to decode profile update")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	record.Profile = profile
	if err := h.Records.Save(r.Context(), record); err != nil {
		log.WithError(err).Error("Failed to save profile")
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record.Profile)
}

// LogoutHandler closes the active chat session best-effort and drops the
// in-memory conversation state. The token itself simply expires.
func (h *UserHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LogoutHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err == nil {
		sctx := h.Registry.Get(claims.Username)
		if closeErr := h.Chat.Close(r.Context(), record, sctx); closeErr != nil {
			log.WithField("username", claims.Username).WithError(closeErr).Warn("Session save on logout failed")
		}
	} else {
		log.WithField("username", claims.Username).WithError(err).Warn("Could not load record during logout")
	}
	h.Registry.Drop(claims.Username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}
