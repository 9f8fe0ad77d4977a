package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guestbot/internal/pushes"

	"github.com/go-chi/chi/v5"
)

type PushHandler struct {
	Repo *pushes.Repo
	Now  func() time.Time
}

type createPushReq struct {
	Message       string  `json:"message"`
	SendToAll     bool    `json:"send_to_all"`
	TargetUserIDs []int64 `json:"target_user_ids"`
	ScheduledAt   *string `json:"scheduled_at"` // RFC3339 optional
}

type pushDTO struct {
	ID            uint64     `json:"id"`
	Message       string     `json:"message"`
	SendToAll     bool       `json:"send_to_all"`
	TargetUserIDs []int64    `json:"target_user_ids"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	Status        string     `json:"status"`
	LockedAt      *time.Time `json:"locked_at"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"last_error"`
	TotalTargets  int        `json:"total_targets"`
	SuccessCount  int        `json:"success_count"`
	FailCount     int        `json:"fail_count"`
	IsSent        bool       `json:"is_sent"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type deliveryDTO struct {
	ID         uint64    `json:"id"`
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status"`
	Error      *string   `json:"error"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPushDTO(j pushes.PushJob) pushDTO {
	return pushDTO{
		ID:            j.ID,
		Message:       j.Message,
		SendToAll:     j.SendToAll,
		TargetUserIDs: []int64(j.TargetUserIDs),
		ScheduledAt:   j.ScheduledAt,
		Status:        string(j.Status),
		LockedAt:      j.LockedAt,
		Attempts:      j.Attempts,
		LastError:     j.LastError,
		TotalTargets:  j.TotalTargets,
		SuccessCount:  j.SuccessCount,
		FailCount:     j.FailCount,
		IsSent:        j.IsSent,
		SentAt:        j.SentAt,
		CreatedAt:     j.CreatedAt,
	}
}

func (h *PushHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *PushHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != nil && strings.TrimSpace(*req.ScheduledAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ScheduledAt))
		if err != nil {
			http.Error(w, "invalid scheduled_at (RFC3339)", http.StatusBadRequest)
			return
		}
		scheduledAt = &t
	}

	job, err := h.Repo.Enqueue(r.Context(), pushes.EnqueueInput{
		Message:       req.Message,
		SendToAll:     req.SendToAll,
		TargetUserIDs: req.TargetUserIDs,
		ScheduledAt:   scheduledAt,
	}, h.now())
	if err != nil {
		switch {
		case errors.Is(err, pushes.ErrEmptyMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": job.ID})
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := h.Repo.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]pushDTO, 0, len(rows))
	for _, j := range rows {
		out = append(out, toPushDTO(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PushHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pushID(w, r)
	if !ok {
		return
	}
	job, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pushes.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPushDTO(*job))
}

func (h *PushHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := pushID(w, r)
	if !ok {
		return
	}
	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		if errors.Is(err, pushes.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	rows, err := h.Repo.Logs(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]deliveryDTO, 0, len(rows))
	for _, e := range rows {
		out = append(out, deliveryDTO{
			ID:         e.ID,
			UserID:     e.UserID,
			Status:     e.Status,
			Error:      e.Error,
			DurationMS: e.DurationMS,
			CreatedAt:  e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func pushID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
