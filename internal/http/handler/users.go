package handler

import (
	"net/http"
	"time"

	"guestbot/internal/directory"
	"guestbot/internal/pushes"
)

type DirectoryHandler struct {
	Users  *directory.Repo
	Pushes *pushes.Repo
}

type userDTO struct {
	UserID    int64     `json:"user_id"`
	Username  *string   `json:"username"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *DirectoryHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Users.List(r.Context(), 500)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]userDTO, 0, len(rows))
	for _, u := range rows {
		out = append(out, userDTO{
			UserID:    u.UserID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			CreatedAt: u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DirectoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Count(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	pending, err := h.Pushes.CountPending(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users_count":    users,
		"pending_pushes": pending,
	})
}
