package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/Serenityblood/victory-test/internal/errors"
	"github.com/Serenityblood/victory-test/internal/model"
)

// MailingUpdate carries the optional fields of a partial update. Nil means
// "leave unchanged"; the merge is explicit and field-by-field.
type MailingUpdate struct {
	Name    *string
	SendAt  *time.Time
	Extra   *model.Extra
	Message *string
}

type MailingRepositoryInterface interface {
	ListMailings(offset, limit int, status string) ([]*model.Mailing, int, error)
	GetByID(id int) (*model.Mailing, error)
	Create(m *model.Mailing) error
	Update(id int, upd MailingUpdate) (*model.Mailing, error)
	Delete(id int) error
}

type MailingRepository struct {
	DB *sql.DB
}

const mailingColumns = `id, name, send_at, extra, message, status, creator_id, created_at`

func scanMailing(row interface{ Scan(...any) error }) (*model.Mailing, error) {
	var m model.Mailing
	var rawExtra []byte
	err := row.Scan(&m.ID, &m.Name, &m.SendAt, &rawExtra, &m.Message, &m.Status, &m.CreatorID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Extra, err = model.ExtraFromJSON(rawExtra)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MailingRepository) Create(m *model.Mailing) error {
	m.CreatedAt = time.Now().UTC()
	if m.Status == "" {
		m.Status = model.StatusPending
	}
	// Absent schedule means "immediately eligible".
	if m.SendAt.IsZero() {
		m.SendAt = m.CreatedAt
	}
	extra, err := m.Extra.JSON()
	if err != nil {
		return err
	}
	query := `
        INSERT INTO mailings (name, send_at, extra, message, status, creator_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, m.Name, m.SendAt, extra, m.Message, m.Status, m.CreatorID, m.CreatedAt).Scan(&m.ID)
}

func (r *MailingRepository) GetByID(id int) (*model.Mailing, error) {
	query := `SELECT ` + mailingColumns + ` FROM mailings WHERE id=$1`
	m, err := scanMailing(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewMailingNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

func (r *MailingRepository) ListMailings(offset, limit int, status string) ([]*model.Mailing, int, error) {
	mailings := []*model.Mailing{}
	query := `SELECT ` + mailingColumns + ` FROM mailings WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMailing(rows)
		if err != nil {
			return nil, 0, err
		}
		mailings = append(mailings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM mailings WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return mailings, total, nil
}

// Update applies a partial update and returns the fresh row.
func (r *MailingRepository) Update(id int, upd MailingUpdate) (*model.Mailing, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name=$%d", argPos))
		args = append(args, *upd.Name)
		argPos++
	}
	if upd.SendAt != nil {
		sets = append(sets, fmt.Sprintf("send_at=$%d", argPos))
		args = append(args, *upd.SendAt)
		argPos++
	}
	if upd.Extra != nil {
		extra, err := upd.Extra.JSON()
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("extra=$%d", argPos))
		args = append(args, extra)
		argPos++
	}
	if upd.Message != nil {
		sets = append(sets, fmt.Sprintf("message=$%d", argPos))
		args = append(args, *upd.Message)
		argPos++
	}

	if len(sets) == 0 {
		return r.GetByID(id)
	}

	query := "UPDATE mailings SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(" WHERE id=$%d RETURNING ", argPos) + mailingColumns
	args = append(args, id)

	m, err := scanMailing(r.DB.QueryRow(query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewMailingNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

func (r *MailingRepository) Delete(id int) error {
	res, err := r.DB.Exec(`DELETE FROM mailings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewMailingNotFound(id)
	}
	return nil
}

var _ MailingRepositoryInterface = (*MailingRepository)(nil)
