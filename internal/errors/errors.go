package appErrors

import (
	"errors"
	"fmt"
)

// ErrMailingNotFound is a sentinel error
type ErrMailingNotFound struct {
	MailingID int
}

func (e *ErrMailingNotFound) Error() string {
	return fmt.Sprintf("mailing with ID %d not found", e.MailingID)
}

// Helper constructor
func NewMailingNotFound(id int) error {
	return &ErrMailingNotFound{MailingID: id}
}

// ErrUserNotFound is returned when no user matches the given telegram ID.
type ErrUserNotFound struct {
	TgID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user with tg_id %d not found", e.TgID)
}

func NewUserNotFound(tgID int64) error {
	return &ErrUserNotFound{TgID: tgID}
}

// ErrUserExists is returned on a duplicate registration attempt.
var ErrUserExists = errors.New("user already registered")
