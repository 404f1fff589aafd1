package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/internal/platform/logger"
	"github.com/shjroemon/social-network-be/pkg/middleware"

	"github.com/google/uuid"
)

const maxUploadSize = 10 << 20 // 10 MiB

type PostHandler struct {
	postSvc *services.PostService
}

func NewPostHandler(p *services.PostService) *PostHandler {
	return &PostHandler{postSvc: p}
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	posts, err := h.postSvc.ListPosts(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"posts": posts, "count": len(posts)})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}
	post, err := h.postSvc.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(post)
}

// CreatePost accepts multipart form data with a caption and an
// optional image. The image lands in a temp file that is removed on
// every exit path; on success the stored post carries the media-host
// URL.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	callerID, _ := middleware.UserID(r.Context())
	authorID, err := uuid.Parse(callerID)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	caption := r.FormValue("caption")

	tempPath := ""
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		tmp, err := os.CreateTemp("", "upload-*"+sanitizeExt(header.Filename))
		if err != nil {
			http.Error(w, "failed to buffer upload", http.StatusInternalServerError)
			return
		}
		if _, err := io.Copy(tmp, io.LimitReader(file, maxUploadSize)); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			http.Error(w, "failed to buffer upload", http.StatusInternalServerError)
			return
		}
		tmp.Close()
		// The service owns the temp file from here and removes it on
		// success and failure alike.
		tempPath = tmp.Name()
	}

	post, err := h.postSvc.CreatePost(r.Context(), authorID, caption, tempPath)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			http.Error(w, "caption or image required", http.StatusBadRequest)
			return
		}
		log.ErrorContext(r.Context(), "post handler - create failed", "author_id", callerID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())
	caller, err := uuid.Parse(callerID)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}
	if err := h.postSvc.DeletePost(r.Context(), caller, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrPostNotFound):
			http.Error(w, "post not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNotAuthorized):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sanitizeExt(filename string) string {
	for i := len(filename) - 1; i >= 0 && len(filename)-i <= 8; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
	}
	return ""
}
