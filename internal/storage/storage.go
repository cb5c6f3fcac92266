// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"secop_bot/internal/model"
)

// ErrWriteFailed marks a rejected write. Callers that tolerate write
// failures (the check cycle) match it with errors.Is.
var ErrWriteFailed = errors.New("storage write failed")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateAlert(ctx context.Context, a *model.Alert) error
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	ListAlerts(ctx context.Context, userID string) ([]model.Alert, error)
	ListActiveAlerts(ctx context.Context, userID string) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, a *model.Alert) error
	UpdateAlertCheckState(ctx context.Context, alertID string, state model.CheckState) error
	DeleteAlert(ctx context.Context, id string) error

	AddFavorite(ctx context.Context, f *model.Favorite) error
	ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error)
	DeleteFavorite(ctx context.Context, userID, processID string) error

	// Current user persisted for the background check cycle. An empty
	// string means nobody is signed in.
	SetCurrentUser(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context) (string, error)
	ClearCurrentUser(ctx context.Context) error

	// Global last-run timestamp, guarding against over-frequent
	// scheduled wake-ups. Nil means the cycle never ran.
	LastRunAt(ctx context.Context) (*time.Time, error)
	SetLastRunAt(ctx context.Context, t time.Time) error

	// Reminder dedup for the tax calendar.
	WasReminded(ctx context.Context, key string) (bool, error)
	MarkReminded(ctx context.Context, key string) error

	Close() error
}
