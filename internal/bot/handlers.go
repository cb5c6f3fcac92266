package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"secop_bot/internal/checker"
	"secop_bot/internal/model"
	"secop_bot/internal/secop"
	"secop_bot/internal/taxcal"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	if err := b.runner.Register(ctx, userIDFor(chatID)); err != nil {
		b.log.Error("register", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, try again.")
		return
	}

	b.reply(chatID, `Welcome to the SECOP II alert bot!

Track Colombian public-procurement processes and get notified when new ones match your searches.

Quick start:
1. /newalert <name> -k <keyword> — create an alert
2. /check — check all alerts now
3. /search <keyword> — one-off search

Background checks for this chat are now active. Use /help for the full command reference.`)
}

func (b *Bot) handleStop(ctx context.Context, chatID int64) {
	if err := b.runner.Unregister(ctx); err != nil {
		b.log.Error("unregister", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, try again.")
		return
	}
	b.reply(chatID, "Signed out. Background checks are off; your alerts are kept. Send /start to sign back in.")
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Session:
/start — sign in and enable background checks
/stop — sign out (alerts are kept)

Alert management:
/newalert <name> [flags] — create an alert
/alerts — show all alerts
/info <id> — alert details
/rename <id> <name> — rename an alert
/freq <id> <hours> — check interval (1, 3, 6, 12 or 24)
/pause <id> — pause an alert
/resume <id> — resume an alert
/delete <id> — delete an alert
/check — check all alerts now
/check <id> — check one alert now (works while paused)

Search and favorites:
/search <keyword> or /search [flags] — one-off search
/fav <process_id> — save a process
/favs — list saved processes
/unfav <process_id> — remove a saved process

Tax calendar:
/taxes — upcoming tax obligations

Filter flags: -k keyword | -d department | -m municipality | -mod modality | -t contract type | -f phase`)
}

func (b *Bot) handleNewAlert(ctx context.Context, chatID int64, args string) {
	name, filters, err := ParseAlertArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	a := &model.Alert{
		ID:             uuid.NewString(),
		UserID:         userIDFor(chatID),
		Name:           name,
		Filters:        filters,
		FrequencyHours: 24,
		IsActive:       true,
	}
	if err := b.store.CreateAlert(ctx, a); err != nil {
		b.log.Error("create alert", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to save the alert, try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Alert created!\n%s %s (every %d h)\n%s\nUse /check %s to take the first snapshot now.",
		shortID(a.ID), a.Name, a.FrequencyHours, FormatFilters(a.Filters), shortID(a.ID)))
}

func (b *Bot) handleAlerts(ctx context.Context, chatID int64) {
	alerts, err := b.store.ListAlerts(ctx, userIDFor(chatID))
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatAlertList(alerts))
}

func (b *Bot) handleInfo(ctx context.Context, chatID int64, args string) {
	alert, err := b.ownedAlert(ctx, chatID, args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, FormatAlertInfo(alert))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) {
	alert, err := b.ownedAlert(ctx, chatID, args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if err := b.store.DeleteAlert(ctx, alert.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("Error deleting alert: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Alert %s \"%s\" deleted.", shortID(alert.ID), alert.Name))
}

func (b *Bot) handleRename(ctx context.Context, chatID int64, args string) {
	id, name, err := ParseRenameArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	alert, err := b.ownedAlert(ctx, chatID, id)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	alert.Name = name
	if err := b.store.UpdateAlert(ctx, alert); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Alert %s renamed to \"%s\".", shortID(alert.ID), name))
}

func (b *Bot) handleFreq(ctx context.Context, chatID int64, args string) {
	id, hours, err := ParseFreqArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	alert, err := b.ownedAlert(ctx, chatID, id)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	alert.FrequencyHours = hours
	if err := b.store.UpdateAlert(ctx, alert); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Alert %s checked every %d h.", shortID(alert.ID), hours))
}

func (b *Bot) handleSetActive(ctx context.Context, chatID int64, args string, active bool) {
	alert, err := b.ownedAlert(ctx, chatID, args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	alert.IsActive = active
	if err := b.store.UpdateAlert(ctx, alert); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	verb := "paused"
	if active {
		verb = "resumed"
	}
	b.reply(chatID, fmt.Sprintf("Alert %s \"%s\" %s.", shortID(alert.ID), alert.Name, verb))
}

// handleCheck without arguments runs the whole cycle right away,
// bypassing the minimum-interval guard. With an id it evaluates that
// one alert, even while paused.
func (b *Bot) handleCheck(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.runner.RunCheckCycle(ctx, checker.TriggerManual)
		b.reply(chatID, "Check finished. You were notified about any new processes.")
		return
	}

	alert, err := b.ownedAlert(ctx, chatID, args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	wasFirst := alert.NeverChecked()
	n, err := b.runner.CheckAlert(ctx, *alert)
	if err != nil {
		if errors.Is(err, secop.ErrUpstreamUnavailable) {
			b.reply(chatID, "The open-data service is unavailable right now, try again later.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}

	switch {
	case wasFirst:
		b.reply(chatID, fmt.Sprintf("Baseline recorded for \"%s\" (%d current process(es)). You will be notified about new ones.", alert.Name, n))
	case n == 0:
		b.reply(chatID, fmt.Sprintf("No new processes for \"%s\".", alert.Name))
	default:
		b.reply(chatID, fmt.Sprintf("%d new process(es) for \"%s\".", n, alert.Name))
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, args string) {
	filters, err := ParseSearchArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	items, err := b.client.Query(ctx, filters, 10)
	if err != nil {
		b.reply(chatID, "The open-data service is unavailable right now, try again later.")
		return
	}

	b.reply(chatID, FormatSearchResults(items))
}

func (b *Bot) handleFav(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /fav <process_id>")
		return
	}

	item, err := b.client.GetProcess(ctx, id)
	if err != nil {
		if errors.Is(err, secop.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Process %s not found.", id))
			return
		}
		b.reply(chatID, "The open-data service is unavailable right now, try again later.")
		return
	}

	f := &model.Favorite{
		UserID:    userIDFor(chatID),
		ProcessID: item.ID,
		Name:      item.Name,
		URL:       item.URL,
	}
	if err := b.store.AddFavorite(ctx, f); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Saved: %s", item.Name))
}

func (b *Bot) handleFavs(ctx context.Context, chatID int64) {
	favs, err := b.store.ListFavorites(ctx, userIDFor(chatID))
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatFavorites(favs))
}

func (b *Bot) handleUnfav(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unfav <process_id>")
		return
	}
	if err := b.store.DeleteFavorite(ctx, userIDFor(chatID), id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed %s from favorites.", id))
}

func (b *Bot) handleTaxes(chatID int64) {
	obligations := taxcal.Upcoming(time.Now(), 60*24*time.Hour)
	b.reply(chatID, FormatTaxList(obligations))
}

// ownedAlert resolves an id argument to an alert owned by the chat.
// A short id prefix is accepted as long as it is unambiguous.
func (b *Bot) ownedAlert(ctx context.Context, chatID int64, args string) (*model.Alert, error) {
	id, err := ParseIDArg(args)
	if err != nil {
		return nil, fmt.Errorf("alert id is required")
	}

	alerts, err := b.store.ListAlerts(ctx, userIDFor(chatID))
	if err != nil {
		return nil, fmt.Errorf("error: %v", err)
	}

	var match *model.Alert
	for i := range alerts {
		if alerts[i].ID == id || hasShortID(alerts[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("id %q is ambiguous, use a longer prefix", id)
			}
			match = &alerts[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("alert %s not found", id)
	}
	return match, nil
}
