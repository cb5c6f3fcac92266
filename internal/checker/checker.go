// Package checker drives the background alert evaluation cycle:
// fetch, diff against the stored baseline, notify, commit.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"secop_bot/internal/diff"
	"secop_bot/internal/model"
	"secop_bot/internal/storage"
	"secop_bot/internal/taxcal"
)

// Trigger identifies what woke the check cycle.
type Trigger int

// Recognized triggers.
const (
	// TriggerScheduled is the recurring tick. It honors the global
	// minimum-interval guard, since the host may wake more often than
	// the nominal period.
	TriggerScheduled Trigger = iota
	// TriggerManual is an explicit "check now" from the user. It
	// bypasses the interval guard.
	TriggerManual
)

// Querier fetches procurement processes matching a filter set.
type Querier interface {
	Query(ctx context.Context, filters model.SearchFilters, limit int) ([]model.ProcurementItem, error)
}

// Notifier delivers alert and reminder notifications.
type Notifier interface {
	DispatchAlert(alert model.Alert, newItems []model.ProcurementItem) error
	DispatchTaxReminder(userID string, ob taxcal.Obligation) error
}

// Runner evaluates the signed-in user's active alerts on every wake-up.
// It stays registered until sign-out; a wake with no persisted user id
// is a no-op. Each per-alert cycle is independent: a failure is logged
// and the remaining alerts still run.
type Runner struct {
	store    storage.Storage
	client   Querier
	notifier Notifier
	log      *slog.Logger

	tick           time.Duration
	minRunInterval time.Duration
	fetchLimit     int
	taxWindow      time.Duration

	// advanceOnNotifyFailure controls whether a failed dispatch still
	// advances the stored baseline. True trades a possibly missed
	// notification for never re-notifying the same stale diff.
	advanceOnNotifyFailure bool
}

// New creates a Runner with production defaults.
func New(store storage.Storage, client Querier, notifier Notifier, log *slog.Logger) *Runner {
	return &Runner{
		store:                  store,
		client:                 client,
		notifier:               notifier,
		log:                    log,
		tick:                   15 * time.Minute,
		minRunInterval:         15 * time.Minute,
		fetchLimit:             50,
		taxWindow:              7 * 24 * time.Hour,
		advanceOnNotifyFailure: true,
	}
}

// SetTickInterval overrides the recurring wake interval.
func (r *Runner) SetTickInterval(d time.Duration) {
	r.tick = d
}

// SetMinRunInterval overrides the guard against over-frequent scheduled runs.
func (r *Runner) SetMinRunInterval(d time.Duration) {
	r.minRunInterval = d
}

// SetAdvanceOnNotifyFailure overrides the baseline-advance policy.
func (r *Runner) SetAdvanceOnNotifyFailure(v bool) {
	r.advanceOnNotifyFailure = v
}

// Register persists userID as the signed-in user. Subsequent wake-ups
// evaluate that user's alerts until Unregister.
func (r *Runner) Register(ctx context.Context, userID string) error {
	if err := r.store.SetCurrentUser(ctx, userID); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	r.log.Info("check cycle registered", "user_id", userID)
	return nil
}

// Unregister clears the persisted user id. Wake-ups become no-ops.
func (r *Runner) Unregister(ctx context.Context) error {
	if err := r.store.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("unregister user: %w", err)
	}
	r.log.Info("check cycle unregistered")
	return nil
}

// Run starts the recurring wake loop, blocking until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.RunCheckCycle(ctx, TriggerScheduled)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunCheckCycle(ctx, TriggerScheduled)
		}
	}
}

// RunCheckCycle evaluates every active alert of the signed-in user.
// The user id is read fresh from the store on every invocation, since
// the process may have restarted since registration. Safe to invoke
// from overlapping triggers: each per-alert sequence is idempotent
// against an unchanged baseline.
func (r *Runner) RunCheckCycle(ctx context.Context, trigger Trigger) {
	userID, err := r.store.CurrentUser(ctx)
	if err != nil {
		r.log.Error("read current user", "error", err)
		return
	}
	if userID == "" {
		return
	}

	now := time.Now().UTC()
	if trigger == TriggerScheduled {
		lastRun, err := r.store.LastRunAt(ctx)
		if err != nil {
			r.log.Error("read last run", "error", err)
			return
		}
		if lastRun != nil && now.Sub(*lastRun) < r.minRunInterval {
			r.log.Debug("skipping redundant wake", "last_run", *lastRun)
			return
		}
	}
	if err := r.store.SetLastRunAt(ctx, now); err != nil {
		r.log.Error("record run start", "error", err)
	}

	alerts, err := r.store.ListActiveAlerts(ctx, userID)
	if err != nil {
		r.log.Error("list active alerts", "user_id", userID, "error", err)
		return
	}

	for _, alert := range alerts {
		if ctx.Err() != nil {
			return
		}
		if alert.LastCheckAt != nil && trigger == TriggerScheduled {
			due := alert.LastCheckAt.Add(time.Duration(alert.FrequencyHours) * time.Hour)
			if now.Before(due) {
				continue
			}
		}
		if _, err := r.CheckAlert(ctx, alert); err != nil {
			r.log.Error("check alert", "alert_id", alert.ID, "name", alert.Name, "error", err)
		}
	}

	r.sendTaxReminders(ctx, userID)
}

// CheckAlert runs one alert's fetch, diff, dispatch, and commit
// sequence, returning how many new processes appeared. The dispatch is
// suppressed on the alert's first evaluation (baseline snapshot) and
// when the diff is empty. An upstream failure leaves the baseline
// untouched so the same diff is retried next cycle.
func (r *Runner) CheckAlert(ctx context.Context, alert model.Alert) (int, error) {
	r.log.Debug("checking alert", "alert_id", alert.ID, "name", alert.Name)

	items, err := r.client.Query(ctx, alert.Filters, r.fetchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch processes: %w", err)
	}

	res := diff.Compute(items, alert.LastResultsIDs)
	firstRun := alert.NeverChecked()

	if !firstRun && len(res.NewItems) > 0 {
		if err := r.notifier.DispatchAlert(alert, res.NewItems); err != nil {
			r.log.Warn("dispatch failed", "alert_id", alert.ID, "error", err)
			if !r.advanceOnNotifyFailure {
				return len(res.NewItems), fmt.Errorf("dispatch: %w", err)
			}
		}
	}

	state := model.CheckState{
		LastCheckAt:  time.Now().UTC(),
		ResultsCount: len(items),
		ResultIDs:    res.FreshIDs,
	}
	if err := r.store.UpdateAlertCheckState(ctx, alert.ID, state); err != nil {
		// Baseline unchanged: the same diff recurs next cycle and the
		// user may be double-notified. Accepted without a transaction
		// across fetch and store.
		return len(res.NewItems), fmt.Errorf("commit check state: %w", err)
	}

	if firstRun {
		r.log.Info("baseline recorded", "alert_id", alert.ID, "results", len(items))
	} else if len(res.NewItems) > 0 {
		r.log.Info("new processes found", "alert_id", alert.ID, "new", len(res.NewItems))
	}
	return len(res.NewItems), nil
}

func (r *Runner) sendTaxReminders(ctx context.Context, userID string) {
	for _, ob := range taxcal.Upcoming(time.Now(), r.taxWindow) {
		key := taxcal.ReminderKey(ob)
		sent, err := r.store.WasReminded(ctx, key)
		if err != nil {
			r.log.Error("read reminder state", "key", key, "error", err)
			continue
		}
		if sent {
			continue
		}
		if err := r.notifier.DispatchTaxReminder(userID, ob); err != nil {
			continue
		}
		if err := r.store.MarkReminded(ctx, key); err != nil {
			r.log.Error("mark reminder", "key", key, "error", err)
		}
	}
}
