package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/Serenityblood/victory-test/internal/errors"
	"github.com/Serenityblood/victory-test/internal/model"
)

// UserRepositoryInterface defines methods used by service
type UserRepositoryInterface interface {
	Create(u *model.User) error
	GetByTgID(tgID int64) (*model.User, error)
	UpdateRole(tgID int64, role model.Role) (*model.User, error)
	ListAll() ([]model.User, error)
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) Create(u *model.User) error {
	u.CreatedAt = time.Now().UTC()
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	query := `
        INSERT INTO users (name, tg_id, role, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	err := r.DB.QueryRow(query, u.Name, u.TgID, u.Role, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return appErrors.ErrUserExists
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByTgID(tgID int64) (*model.User, error) {
	query := `
        SELECT id, name, tg_id, role, created_at
        FROM users
        WHERE tg_id = $1
    `
	var u model.User
	err := r.DB.QueryRow(query, tgID).Scan(&u.ID, &u.Name, &u.TgID, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewUserNotFound(tgID)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateRole(tgID int64, role model.Role) (*model.User, error) {
	query := `
        UPDATE users SET role=$1 WHERE tg_id=$2
        RETURNING id, name, tg_id, role, created_at
    `
	var u model.User
	err := r.DB.QueryRow(query, role, tgID).Scan(&u.ID, &u.Name, &u.TgID, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewUserNotFound(tgID)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListAll() ([]model.User, error) {
	rows, err := r.DB.Query(`SELECT id, name, tg_id, role, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.TgID, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
