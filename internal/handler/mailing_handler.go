// internal/handler/mailing_handler.go
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
	"github.com/Serenityblood/victory-test/internal/repository"
	"github.com/Serenityblood/victory-test/internal/service"
)

// MailingHandler holds the dependencies for mailing-related HTTP handlers
type MailingHandler struct {
	Service *service.MailingService
	TZ      *time.Location
}

// mailingRead is the response shape; timestamps are formatted in the
// configured display timezone.
type mailingRead struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	SendAt    string              `json:"send_at"`
	Extra     model.Extra         `json:"extra"`
	Message   string              `json:"message"`
	Status    model.MailingStatus `json:"status"`
	CreatorID int                 `json:"creator_id"`
	CreatedAt string              `json:"created_at"`
}

func (h *MailingHandler) read(m *model.Mailing) mailingRead {
	return mailingRead{
		ID:        m.ID,
		Name:      m.Name,
		SendAt:    m.SendAt.In(h.TZ).Format(time.RFC3339),
		Extra:     m.Extra,
		Message:   m.Message,
		Status:    m.Status,
		CreatorID: m.CreatorID,
		CreatedAt: m.CreatedAt.In(h.TZ).Format(time.RFC3339),
	}
}

// CreateMailing handles creating a new mailing
func (h *MailingHandler) CreateMailing(w http.ResponseWriter, r *http.Request) {
	var payload service.CreateMailingInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mailing, err := h.Service.CreateMailing(payload)
	if err != nil {
		writeMailingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.read(mailing))
}

// ListMailings returns a paginated list of mailings
func (h *MailingHandler) ListMailings(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}
	status := r.URL.Query().Get("status")

	mailings, pagination, err := h.Service.ListMailings(page, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch mailings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := make([]mailingRead, len(mailings))
	for i := range mailings {
		data[i] = h.read(&mailings[i])
	}
	response := map[string]interface{}{
		"data":       data,
		"pagination": pagination,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetMailing returns a single mailing by ID
func (h *MailingHandler) GetMailing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	mailing, err := h.Service.GetMailing(id)
	if err != nil {
		writeMailingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.read(mailing))
}

// UpdateMailing applies a partial update to a mailing
func (h *MailingHandler) UpdateMailing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Name    *string      `json:"name"`
		SendAt  *time.Time   `json:"send_at"`
		Extra   *model.Extra `json:"extra"`
		Message *string      `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mailing, err := h.Service.UpdateMailing(id, repository.MailingUpdate{
		Name:    payload.Name,
		SendAt:  payload.SendAt,
		Extra:   payload.Extra,
		Message: payload.Message,
	})
	if err != nil {
		writeMailingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.read(mailing))
}

// DeleteMailing removes a mailing
func (h *MailingHandler) DeleteMailing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid mailing id", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteMailing(id); err != nil {
		writeMailingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeMailingError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrMailingNotFound
	var userNotFound *appErrors.ErrUserNotFound
	switch {
	case errors.As(err, &notFound), errors.As(err, &userNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrNameTooLong),
		errors.Is(err, service.ErrBadMedia):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
