package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/parking-sniper/internal/db"
)

type State string

const (
	StateFree State = "Free"
	StateFull State = "Full"
)

// Day is the cached occupancy of one calendar date, valid as of the last
// successful sync. A snapshot, not live truth.
type Day struct {
	Date  string
	State State
}

// MonthStates expands a portal full-days list into a row for every calendar
// day of the month. Day counting comes from time.Date, so February length
// tracks leap years.
func MonthStates(year int, month time.Month, fullDays []int) []Day {
	full := make(map[int]bool, len(fullDays))
	for _, d := range fullDays {
		full[d] = true
	}

	n := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	out := make([]Day, 0, n)
	for day := 1; day <= n; day++ {
		state := StateFree
		if full[day] {
			state = StateFull
		}
		out = append(out, Day{
			Date:  fmt.Sprintf("%04d-%02d-%02d", year, int(month), day),
			State: state,
		})
	}
	return out
}

type AvailabilityRepo struct{ db *db.DB }

func NewAvailabilityRepo(d *db.DB) *AvailabilityRepo { return &AvailabilityRepo{db: d} }

// ReplaceMonth overwrites the cache for every day of the month in one
// transaction. Never an incremental patch: days missing from fullDays go
// back to Free.
func (r *AvailabilityRepo) ReplaceMonth(ctx context.Context, year int, month time.Month, fullDays []int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	for _, d := range MonthStates(year, month, fullDays) {
		if _, err := tx.Exec(ctx, `
INSERT INTO availability(date, state) VALUES ($1, $2)
ON CONFLICT (date) DO UPDATE SET state = EXCLUDED.state`, d.Date, d.State); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *AvailabilityRepo) List(ctx context.Context) ([]Day, error) {
	rows, err := r.db.Query(ctx, `SELECT date, state FROM availability ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Day
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.Date, &d.State); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
