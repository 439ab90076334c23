package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/Serenityblood/victory-test/internal/model"
)

// ScanRepository owns the transactional reads and writes of one dispatch
// scan. A scan holds exactly one transaction from the first read until
// Commit or Rollback; no state mutation is visible unless the whole scan
// commits.
type ScanRepository struct {
	DB *sql.DB
}

// Scan is a single in-flight scan transaction.
type Scan struct {
	tx *sql.Tx
}

func (r *ScanRepository) BeginScan(ctx context.Context) (*Scan, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Scan{tx: tx}, nil
}

// RecipientIDs returns the full recipient directory snapshot.
func (s *Scan) RecipientIDs(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT tg_id FROM users`)
}

// ReportRecipientIDs returns the subset allowed to see mailing reports.
func (s *Scan) ReportRecipientIDs(ctx context.Context, roles []model.Role) ([]int64, error) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return s.queryIDs(ctx, `SELECT tg_id FROM users WHERE role = ANY($1)`, pq.Array(names))
}

func (s *Scan) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DueMailings selects every mailing whose scheduled time has passed and whose
// status is still pending.
func (s *Scan) DueMailings(ctx context.Context, now time.Time) ([]*model.Mailing, error) {
	query := `SELECT ` + mailingColumns + ` FROM mailings WHERE status=$1 AND send_at<=$2`
	rows, err := s.tx.QueryContext(ctx, query, model.StatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mailings := []*model.Mailing{}
	for rows.Next() {
		m, err := scanMailing(rows)
		if err != nil {
			return nil, err
		}
		mailings = append(mailings, m)
	}
	return mailings, rows.Err()
}

// MarkDone transitions the given mailings to done. The change only lands
// together with the scan's Commit.
func (s *Scan) MarkDone(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.tx.ExecContext(
		ctx,
		`UPDATE mailings SET status=$1 WHERE id = ANY($2)`,
		model.StatusDone, pq.Array(ids),
	)
	return err
}

func (s *Scan) Commit() error {
	return s.tx.Commit()
}

func (s *Scan) Rollback() error {
	return s.tx.Rollback()
}
