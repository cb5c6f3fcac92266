// Package notify turns non-empty diffs into Telegram notifications.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"secop_bot/internal/model"
	"secop_bot/internal/taxcal"
)

// ErrChannelUnavailable marks a failed delivery attempt. Dispatch
// never panics and never aborts the caller's cycle.
var ErrChannelUnavailable = errors.New("notification channel unavailable")

// previewCount is how many processes are listed in the message body.
const previewCount = 3

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Dispatcher sends one notification per alert evaluation cycle.
type Dispatcher struct {
	sender Sender
	log    *slog.Logger
}

// New creates a Dispatcher.
func New(sender Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// DispatchAlert sends a single summary notification for the alert's
// new items. An empty diff is a no-op. Delivery failure is logged and
// reported as ErrChannelUnavailable.
func (d *Dispatcher) DispatchAlert(alert model.Alert, newItems []model.ProcurementItem) error {
	if len(newItems) == 0 {
		return nil
	}

	chatID, err := chatIDFor(alert.UserID)
	if err != nil {
		d.log.Error("bad alert owner id", "alert_id", alert.ID, "user_id", alert.UserID, "error", err)
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	msg := FormatAlertNotification(alert.Name, newItems)
	if err := d.sender.SendMessage(chatID, msg); err != nil {
		d.log.Error("dispatch alert notification", "alert_id", alert.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return nil
}

// DispatchTaxReminder notifies the user of an upcoming tax obligation.
func (d *Dispatcher) DispatchTaxReminder(userID string, ob taxcal.Obligation) error {
	chatID, err := chatIDFor(userID)
	if err != nil {
		d.log.Error("bad user id", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	msg := FormatTaxReminder(ob)
	if err := d.sender.SendMessage(chatID, msg); err != nil {
		d.log.Error("dispatch tax reminder", "obligation", ob.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return nil
}

func chatIDFor(userID string) (int64, error) {
	return strconv.ParseInt(userID, 10, 64)
}

// FormatAlertNotification builds the summary message for one alert
// cycle: alert name, new-item count, and a short preview.
func FormatAlertNotification(alertName string, items []model.ProcurementItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 %s\n%d proceso(s) nuevo(s) en SECOP II\n", alertName, len(items))

	n := len(items)
	if n > previewCount {
		n = previewCount
	}
	for _, item := range items[:n] {
		b.WriteString("\n• ")
		b.WriteString(itemLine(item))
	}
	if len(items) > previewCount {
		fmt.Fprintf(&b, "\n… y %d más", len(items)-previewCount)
	}
	return b.String()
}

// FormatTaxReminder builds the reminder message for a tax obligation.
func FormatTaxReminder(ob taxcal.Obligation) string {
	return fmt.Sprintf("📅 Obligación tributaria próxima\n%s (%s)\nVence: %s",
		ob.Name, ob.Authority, ob.Due.Format("2006-01-02"))
}

func itemLine(item model.ProcurementItem) string {
	var b strings.Builder
	b.WriteString(item.Name)
	if item.Entity != "" {
		b.WriteString(" · ")
		b.WriteString(item.Entity)
	}
	if item.URL != "" {
		b.WriteString("\n  ")
		b.WriteString(item.URL)
	}
	return b.String()
}
