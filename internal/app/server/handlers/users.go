package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/pkg/middleware"

	"github.com/google/uuid"
)

type UserHandler struct {
	userSvc *services.UserService
}

func NewUserHandler(u *services.UserService) *UserHandler {
	return &UserHandler{userSvc: u}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"created_at": user.CreatedAt,
	})
}

// UpdateProfile lets users edit their own profile only.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if callerID != id.String() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var req struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
		Bio       string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.UpdateProfile(r.Context(), id, req.Username, req.AvatarURL, req.Bio)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
	})
}
