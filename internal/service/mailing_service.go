// internal/service/mailing_service.go
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/repository"
)

var (
	ErrEmptyName   = errors.New("mailing name must not be empty")
	ErrNameTooLong = fmt.Errorf("mailing name must fit in %d bytes", model.MaxNameSize)
	ErrBadMedia    = errors.New("unsupported media type")
)

type MailingService struct {
	MailingRepo repository.MailingRepositoryInterface
	UserRepo    repository.UserRepositoryInterface
}

// CreateMailingInput is the request shape produced by the authoring bot.
type CreateMailingInput struct {
	Name         string      `json:"name"`
	Message      string      `json:"message"`
	CreatorTgID  int64       `json:"creator_id"`
	SendAt       *time.Time  `json:"send_at,omitempty"`
	Extra        model.Extra `json:"extra"`
}

func (s *MailingService) CreateMailing(in CreateMailingInput) (*model.Mailing, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateExtra(in.Extra); err != nil {
		return nil, err
	}

	// The authoring side only knows telegram IDs; resolve the row ID here.
	creator, err := s.UserRepo.GetByTgID(in.CreatorTgID)
	if err != nil {
		return nil, err
	}

	m := &model.Mailing{
		Name:      in.Name,
		Message:   in.Message,
		Extra:     in.Extra,
		CreatorID: creator.ID,
		Status:    model.StatusPending,
	}
	if in.SendAt != nil {
		m.SendAt = in.SendAt.UTC()
	}
	if err := s.MailingRepo.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMailings fetches mailings with pagination
func (s *MailingService) ListMailings(page, pageSize int, status string) ([]model.Mailing, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.MailingRepo.ListMailings(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	mailings := make([]model.Mailing, len(ptrs))
	for i, m := range ptrs {
		mailings[i] = *m
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return mailings, pagination, nil
}

func (s *MailingService) GetMailing(id int) (*model.Mailing, error) {
	return s.MailingRepo.GetByID(id)
}

func (s *MailingService) UpdateMailing(id int, upd repository.MailingUpdate) (*model.Mailing, error) {
	if upd.Name != nil {
		if err := validateName(*upd.Name); err != nil {
			return nil, err
		}
	}
	if upd.Extra != nil {
		if err := validateExtra(*upd.Extra); err != nil {
			return nil, err
		}
	}
	return s.MailingRepo.Update(id, upd)
}

func (s *MailingService) DeleteMailing(id int) error {
	return s.MailingRepo.Delete(id)
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > model.MaxNameSize {
		return ErrNameTooLong
	}
	return nil
}

func validateExtra(extra model.Extra) error {
	if extra.Media != nil && !model.ValidMediaType(extra.Media.MediaType) {
		return ErrBadMedia
	}
	return nil
}
