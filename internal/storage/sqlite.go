package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"secop_bot/internal/model"
	"secop_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// State keys in the app_state table.
const (
	keyCurrentUser = "current_user_id"
	keyLastRunAt   = "last_run_at"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateAlert inserts a new alert and populates its CreatedAt.
func (s *SQLite) CreateAlert(ctx context.Context, a *model.Alert) error {
	now := time.Now().UTC().Format(timeLayout)
	ids, err := encodeIDs(a.LastResultsIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, name, keyword, department, municipality, modality,
		                     contract_type, phase, frequency_hours, is_active,
		                     last_check_at, last_results_count, last_results_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name,
		a.Filters.Keyword, a.Filters.Department, a.Filters.Municipality,
		a.Filters.Modality, a.Filters.ContractType, a.Filters.Phase,
		a.FrequencyHours, boolToInt(a.IsActive),
		formatNullableTime(a.LastCheckAt), a.LastResultsCount, ids, now,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetAlert returns a single alert by its ID.
func (s *SQLite) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx, selectAlert+` WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return a, err
}

// ListAlerts returns all alerts belonging to the given user.
func (s *SQLite) ListAlerts(ctx context.Context, userID string) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		selectAlert+` WHERE user_id = ? ORDER BY created_at, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanAlerts(rows)
}

// ListActiveAlerts returns the user's active alerts in a stable order.
// Inactive alerts are excluded; the scheduled check never sees them.
func (s *SQLite) ListActiveAlerts(ctx context.Context, userID string) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		selectAlert+` WHERE user_id = ? AND is_active = 1 ORDER BY created_at, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanAlerts(rows)
}

// UpdateAlert persists user-editable fields of an existing alert.
func (s *SQLite) UpdateAlert(ctx context.Context, a *model.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET name = ?, keyword = ?, department = ?, municipality = ?,
		        modality = ?, contract_type = ?, phase = ?, frequency_hours = ?, is_active = ?
		 WHERE id = ?`,
		a.Name,
		a.Filters.Keyword, a.Filters.Department, a.Filters.Municipality,
		a.Filters.Modality, a.Filters.ContractType, a.Filters.Phase,
		a.FrequencyHours, boolToInt(a.IsActive), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	return nil
}

// UpdateAlertCheckState records the outcome of an evaluation. The
// last_check_at guard keeps the timestamp monotonically non-decreasing
// per alert; a stale write is dropped silently.
func (s *SQLite) UpdateAlertCheckState(ctx context.Context, alertID string, state model.CheckState) error {
	ids, err := encodeIDs(state.ResultIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	checkedAt := state.LastCheckAt.UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET last_check_at = ?, last_results_count = ?, last_results_ids = ?
		 WHERE id = ? AND (last_check_at IS NULL OR last_check_at <= ?)`,
		checkedAt, state.ResultsCount, ids, alertID, checkedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: update check state: %v", ErrWriteFailed, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrWriteFailed, err)
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM alerts WHERE id = ?`, alertID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: check alert existence: %v", ErrWriteFailed, err)
		}
		if exists == 0 {
			return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
		}
		// Stale write (newer check already recorded): nothing to do.
	}
	return nil
}

// DeleteAlert removes an alert by its ID.
func (s *SQLite) DeleteAlert(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

// AddFavorite saves a procurement process for a user. Saving the same
// process twice is a no-op.
func (s *SQLite) AddFavorite(ctx context.Context, f *model.Favorite) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, process_id, name, url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.UserID, f.ProcessID, f.Name, f.URL, now,
	)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	f.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListFavorites returns the user's saved processes, oldest first.
func (s *SQLite) ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, process_id, name, url, created_at
		 FROM favorites WHERE user_id = ? ORDER BY created_at, process_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var favs []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var created string
		if err := rows.Scan(&f.UserID, &f.ProcessID, &f.Name, &f.URL, &created); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.CreatedAt, _ = time.Parse(timeLayout, created)
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// DeleteFavorite removes a saved process.
func (s *SQLite) DeleteFavorite(ctx context.Context, userID, processID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND process_id = ?`, userID, processID,
	)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// SetCurrentUser persists the signed-in user id for the background cycle.
func (s *SQLite) SetCurrentUser(ctx context.Context, userID string) error {
	return s.setState(ctx, keyCurrentUser, userID)
}

// CurrentUser returns the persisted signed-in user id, or "" if nobody
// is signed in.
func (s *SQLite) CurrentUser(ctx context.Context) (string, error) {
	return s.getState(ctx, keyCurrentUser)
}

// ClearCurrentUser removes the persisted user id (sign-out).
func (s *SQLite) ClearCurrentUser(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, keyCurrentUser)
	if err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// LastRunAt returns when the check cycle last ran, or nil if never.
func (s *SQLite) LastRunAt(ctx context.Context) (*time.Time, error) {
	v, err := s.getState(ctx, keyLastRunAt)
	if err != nil || v == "" {
		return nil, err
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return nil, fmt.Errorf("parse last run: %w", err)
	}
	return &t, nil
}

// SetLastRunAt records the start of a check cycle.
func (s *SQLite) SetLastRunAt(ctx context.Context, t time.Time) error {
	if err := s.setState(ctx, keyLastRunAt, t.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// WasReminded reports whether a reminder key was already sent.
func (s *SQLite) WasReminded(ctx context.Context, key string) (bool, error) {
	v, err := s.getState(ctx, key)
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// MarkReminded records that a reminder key was sent.
func (s *SQLite) MarkReminded(ctx context.Context, key string) error {
	if err := s.setState(ctx, key, "1"); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *SQLite) setState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) getState(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return v, nil
}

const selectAlert = `SELECT id, user_id, name, keyword, department, municipality, modality,
       contract_type, phase, frequency_hours, is_active,
       last_check_at, last_results_count, last_results_ids, created_at
  FROM alerts`

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode result ids: %w", err)
	}
	return string(data), nil
}

func decodeIDs(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("decode result ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAlert(row scannable) (*model.Alert, error) {
	var a model.Alert
	var isActive int
	var lastCheck, created sql.NullString
	var rawIDs string
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name,
		&a.Filters.Keyword, &a.Filters.Department, &a.Filters.Municipality,
		&a.Filters.Modality, &a.Filters.ContractType, &a.Filters.Phase,
		&a.FrequencyHours, &isActive,
		&lastCheck, &a.LastResultsCount, &rawIDs, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.IsActive = isActive == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		a.LastCheckAt = &t
	}
	if created.Valid {
		a.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	a.LastResultsIDs, err = decodeIDs(rawIDs)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]model.Alert, error) {
	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}
