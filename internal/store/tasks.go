// Package store holds the durable state the worker drives: reservation tasks,
// the per-date availability snapshot, and the portal credentials served to the
// worker.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/parking-sniper/internal/db"
	"github.com/jackc/pgx/v5"
)

type Status string

const (
	StatusPending       Status = "Pending"
	StatusReserved      Status = "Reserved"
	StatusFull          Status = "Full"
	StatusPendingDelete Status = "Pending_Delete"
	StatusDeleteFailed  Status = "Delete_Failed"
)

// Task is one booking (or cancellation) intent against the portal.
// Date is a calendar day formatted YYYY-MM-DD, the format the portal takes.
type Task struct {
	ID          int64
	Date        string
	PlateNumber string
	Status      Status
	RetryLog    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// maxRetryLog bounds retry_log writes so a chatty remote can't grow rows
// without limit. Counted in runes: the portal localizes its messages, and a
// byte cut could split a multi-byte character and hand Postgres invalid UTF-8.
const maxRetryLog = 50

func clipLog(s string) string {
	r := []rune(s)
	if len(r) <= maxRetryLog {
		return s
	}
	return string(r[:maxRetryLog])
}

const taskColumns = `id, date, plate_number, status, retry_log, created_at, updated_at`

type TaskRepo struct{ db *db.DB }

func NewTaskRepo(d *db.DB) *TaskRepo { return &TaskRepo{db: d} }

func (r *TaskRepo) Create(ctx context.Context, date, plate string) (int64, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return 0, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date)
	}
	if plate == "" {
		return 0, fmt.Errorf("plate_number required")
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO reservations(date, plate_number, status)
VALUES ($1, $2, $3)
RETURNING id`, date, plate, StatusPending).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *TaskRepo) List(ctx context.Context) ([]Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM reservations ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// RequestDelete marks a task for removal; the worker confirms the removal
// against the portal before the row disappears.
func (r *TaskRepo) RequestDelete(ctx context.Context, id int64) error {
	return r.db.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1`,
		id, StatusPendingDelete)
}

// TaskOps is the mutation surface available inside one worker cycle. All
// writes through it commit together when the cycle ends.
type TaskOps interface {
	ListActive(ctx context.Context) ([]Task, error)
	ListPendingDelete(ctx context.Context) ([]Task, error)
	SetStatus(ctx context.Context, id int64, status Status, retryLog string) error
	SetRetryLog(ctx context.Context, id int64, retryLog string) error
	Delete(ctx context.Context, id int64) error
}

// Cycle runs fn inside a transaction. fn returning an error rolls every task
// mutation of the cycle back.
func (r *TaskRepo) Cycle(ctx context.Context, fn func(TaskOps) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(taskOps{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type taskOps struct{ tx pgx.Tx }

func (o taskOps) ListActive(ctx context.Context) ([]Task, error) {
	return o.listByStatus(ctx, StatusPending, StatusFull)
}

func (o taskOps) ListPendingDelete(ctx context.Context) ([]Task, error) {
	return o.listByStatus(ctx, StatusPendingDelete)
}

func (o taskOps) listByStatus(ctx context.Context, statuses ...Status) ([]Task, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	rows, err := o.tx.Query(ctx, `
SELECT `+taskColumns+` FROM reservations WHERE status = ANY($1) ORDER BY id`, ss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (o taskOps) SetStatus(ctx context.Context, id int64, status Status, retryLog string) error {
	_, err := o.tx.Exec(ctx, `
UPDATE reservations SET status=$2, retry_log=$3, updated_at=now() WHERE id=$1`,
		id, status, clipLog(retryLog))
	return err
}

func (o taskOps) SetRetryLog(ctx context.Context, id int64, retryLog string) error {
	_, err := o.tx.Exec(ctx, `
UPDATE reservations SET retry_log=$2, updated_at=now() WHERE id=$1`,
		id, clipLog(retryLog))
	return err
}

func (o taskOps) Delete(ctx context.Context, id int64) error {
	_, err := o.tx.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	return err
}

func scanTasks(rows db.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Date, &t.PlateNumber, &t.Status, &t.RetryLog, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
