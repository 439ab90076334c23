// internal/service/user_service.go
package service

import (
	"errors"

	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/repository"
)

var ErrBadRole = errors.New("role must be one of admin, user, moderator")

type UserService struct {
	UserRepo repository.UserRepositoryInterface
}

func (s *UserService) Register(name string, tgID int64, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return nil, ErrBadRole
	}
	u := &model.User{
		Name: name,
		TgID: tgID,
		Role: role,
	}
	if err := s.UserRepo.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetByTgID(tgID int64) (*model.User, error) {
	return s.UserRepo.GetByTgID(tgID)
}

func (s *UserService) ListUsers() ([]model.User, error) {
	return s.UserRepo.ListAll()
}

func (s *UserService) ChangeRole(tgID int64, role model.Role) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, ErrBadRole
	}
	return s.UserRepo.UpdateRole(tgID, role)
}
