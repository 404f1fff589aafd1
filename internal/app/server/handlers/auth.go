package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/internal/platform/logger"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			http.Error(w, "account already exists", http.StatusConflict)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - register failed", "email", req.Email)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - login failed", "email", req.Email)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
}
