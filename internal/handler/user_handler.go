// internal/handler/user_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/Serenityblood/victory-test/internal/errors"
	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/service"
)

// UserHandler holds the dependencies for user-related HTTP handlers
type UserHandler struct {
	Service *service.UserService
	TZ      *time.Location
}

type userRead struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	TgID      int64      `json:"tg_id"`
	Role      model.Role `json:"role"`
	CreatedAt string     `json:"created_at"`
}

func (h *UserHandler) read(u *model.User) userRead {
	return userRead{
		ID:        u.ID,
		Name:      u.Name,
		TgID:      u.TgID,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.In(h.TZ).Format(time.RFC3339),
	}
}

// CreateUser registers a new recipient
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string     `json:"name"`
		TgID int64      `json:"tg_id"`
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.Register(payload.Name, payload.TgID, payload.Role)
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.read(user))
}

// ListUsers returns the full recipient directory
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers()
	if err != nil {
		http.Error(w, "failed to fetch users: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := make([]userRead, len(users))
	for i := range users {
		data[i] = h.read(&users[i])
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

// GetUser returns a user by telegram ID
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "tg_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid tg_id", http.StatusBadRequest)
		return
	}

	user, err := h.Service.GetByTgID(tgID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.read(user))
}

// UpdateUserRole changes a user's role
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "tg_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid tg_id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.ChangeRole(tgID, payload.Role)
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.read(user))
}

func writeUserError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrUserNotFound
	switch {
	case errors.Is(err, appErrors.ErrUserExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrBadRole):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
