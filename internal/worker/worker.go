// Package worker runs the reservation-processing loop: it owns the portal
// session lifecycle, keeps the availability cache fresh, and drives every
// queued task toward Reserved (or deletion) one paced cycle at a time.
package worker

import (
	"context"
	"time"

	"github.com/example/parking-sniper/internal/portal"
	"github.com/example/parking-sniper/internal/store"
	"github.com/rs/zerolog"
)

// Session is the slice of *portal.Session the worker drives.
type Session interface {
	Refresh(ctx context.Context, year int, month time.Month) ([]int, error)
	Submit(ctx context.Context, date, plate string, cmd portal.Command) portal.Outcome
}

// DialFunc acquires a fresh authenticated session.
type DialFunc func(ctx context.Context) (Session, error)

type TaskStore interface {
	Cycle(ctx context.Context, fn func(store.TaskOps) error) error
}

type AvailabilityStore interface {
	ReplaceMonth(ctx context.Context, year int, month time.Month, fullDays []int) error
}

type Worker struct {
	Dial  DialFunc
	Tasks TaskStore
	Avail AvailabilityStore
	Log   zerolog.Logger

	// Interval paces cycles; AcquireBackoff is the longer wait after a
	// failed login; SessionMaxAge forces a scheduled re-login + resync.
	Interval       time.Duration
	SessionMaxAge  time.Duration
	AcquireBackoff time.Duration

	// Now is swappable for tests.
	Now func() time.Time

	session  Session
	lastSync time.Time
}

// Run loops until ctx is cancelled. No single bad cycle stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.Log.Info().Dur("interval", w.Interval).Msg("worker started")
	for {
		delay := w.cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// cycle runs one pass and returns how long to sleep before the next one.
func (w *Worker) cycle(ctx context.Context) time.Duration {
	now := w.now()

	if w.session == nil || now.Sub(w.lastSync) > w.SessionMaxAge {
		w.Log.Info().Msg("acquiring portal session")
		s, err := w.Dial(ctx)
		if err != nil {
			// No session means no task processing this cycle.
			w.session = nil
			w.Log.Warn().Err(err).Dur("backoff", w.AcquireBackoff).Msg("session acquisition failed")
			return w.AcquireBackoff
		}
		w.session = s
		w.syncAvailability(ctx)
		w.lastSync = now
	}

	if err := w.Tasks.Cycle(ctx, func(tx store.TaskOps) error {
		return w.processTasks(ctx, tx)
	}); err != nil {
		w.Log.Warn().Err(err).Msg("cycle failed")
	}
	return w.Interval
}

func (w *Worker) processTasks(ctx context.Context, tx store.TaskOps) error {
	active, err := tx.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, t := range active {
		verb := "processing"
		if t.Status == store.StatusFull {
			verb = "sniping"
		}
		w.Log.Info().Str("date", t.Date).Str("plate", t.PlateNumber).Msg(verb)

		out := w.session.Submit(ctx, t.Date, t.PlateNumber, portal.CmdAdd)
		switch out.Kind {
		case portal.SessionExpired:
			// Batch abandoned; re-authenticate next cycle.
			w.Log.Warn().Str("date", t.Date).Msg("session expired mid-batch")
			w.session = nil
			return nil
		case portal.Success:
			if err := tx.SetStatus(ctx, t.ID, store.StatusReserved, "OK"); err != nil {
				return err
			}
			w.syncAvailability(ctx)
		case portal.Refused:
			switch portal.ClassifyRefusal(out.Message) {
			case portal.DispositionAlreadyReserved:
				w.Log.Info().Str("date", t.Date).Msg("already reserved, marking confirmed")
				if err := tx.SetStatus(ctx, t.ID, store.StatusReserved, "Confirmed (Already set)"); err != nil {
					return err
				}
				w.syncAvailability(ctx)
			case portal.DispositionCapacityFull:
				if err := tx.SetStatus(ctx, t.ID, store.StatusFull, "Waiting..."); err != nil {
					return err
				}
			default:
				if err := tx.SetRetryLog(ctx, t.ID, retryText(out)); err != nil {
					return err
				}
			}
		default:
			if err := tx.SetRetryLog(ctx, t.ID, retryText(out)); err != nil {
				return err
			}
		}
	}

	deletes, err := tx.ListPendingDelete(ctx)
	if err != nil {
		return err
	}
	for _, t := range deletes {
		out := w.session.Submit(ctx, t.Date, t.PlateNumber, portal.CmdDel)
		if out.Kind == portal.Success {
			if err := tx.Delete(ctx, t.ID); err != nil {
				return err
			}
			w.syncAvailability(ctx)
			continue
		}
		if err := tx.SetStatus(ctx, t.ID, store.StatusDeleteFailed, retryText(out)); err != nil {
			return err
		}
	}
	return nil
}

// syncAvailability overwrites the current month's cache from the portal.
// Called on the schedule and immediately after any confirmed mutation, so
// consumers never wait a full freshness window to see this worker's own
// bookings. Failures leave the cache stale and the session alive.
func (w *Worker) syncAvailability(ctx context.Context) {
	if w.session == nil {
		return
	}
	now := w.now()
	days, err := w.session.Refresh(ctx, now.Year(), now.Month())
	if err != nil {
		w.Log.Warn().Err(err).Msg("availability sync failed")
		return
	}
	if err := w.Avail.ReplaceMonth(ctx, now.Year(), now.Month(), days); err != nil {
		w.Log.Warn().Err(err).Msg("availability cache update failed")
		return
	}
	w.Log.Info().Int("full_days", len(days)).Msg("availability updated")
}

func retryText(out portal.Outcome) string {
	if out.Message != "" {
		return out.Message
	}
	switch out.Kind {
	case portal.Refused:
		return "Refused"
	case portal.SessionExpired:
		return "Session expired"
	}
	return out.Kind.String()
}
