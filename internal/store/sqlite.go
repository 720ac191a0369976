package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/bidboard/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each pooled connection to :memory: would be a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const notificationColumns = `id, type, title, message, is_read, mission_id, created_at`

// ReplaceNotifications upserts list and drops cached entries the server no
// longer returns. is_read only moves from 0 to 1.
func (s *SQLiteStore) ReplaceNotifications(
	ctx context.Context,
	userID int64,
	list []model.Notification,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if len(list) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clearing notifications for user %d: %w", userID, err)
		}
		return tx.Commit()
	}

	const upsert = `
		INSERT INTO notifications (
			user_id, id, type, title, message, is_read, mission_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			type       = excluded.type,
			title      = excluded.title,
			message    = excluded.message,
			is_read    = MAX(notifications.is_read, excluded.is_read),
			mission_id = excluded.mission_id,
			created_at = excluded.created_at`

	stmt, err := tx.PreparexContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(list))
	for _, n := range list {
		_, err := stmt.ExecContext(ctx,
			userID, n.ID, string(n.Type), n.Title, n.Message,
			boolToInt(n.IsRead), n.MissionID, n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", n.ID, err)
		}
		ids = append(ids, n.ID)
	}

	query, args, err := sqlx.In(
		"DELETE FROM notifications WHERE user_id = ? AND id NOT IN (?)", userID, ids,
	)
	if err != nil {
		return fmt.Errorf("building prune query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("pruning notifications for user %d: %w", userID, err)
	}

	return tx.Commit()
}

// GetNotifications returns the cached inbox, newest first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	userID int64,
) ([]model.Notification, error) {
	var list []model.Notification
	err := s.db.SelectContext(ctx, &list,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return list, nil
}

// GetNotification returns one cached notification or ErrNotFound.
func (s *SQLiteStore) GetNotification(
	ctx context.Context,
	userID, id int64,
) (*model.Notification, error) {
	var n model.Notification
	err := s.db.GetContext(ctx, &n,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id = ? AND id = ?",
		userID, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification %d: %w", id, err)
	}
	return &n, nil
}

// UnreadCount returns the number of unread cached notifications.
func (s *SQLiteStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?", userID, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %d as read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks the user's whole inbox as read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ?", userID,
	)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// ClearNotifications removes the user's cached inbox.
func (s *SQLiteStore) ClearNotifications(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// snapshotRow mirrors a badge_snapshots row.
type snapshotRow struct {
	Dashboard      int       `db:"dashboard"`
	Reviews        int       `db:"reviews"`
	Messages       int       `db:"messages"`
	PendingReviews int       `db:"pending_reviews"`
	MyBids         int       `db:"my_bids"`
	RefreshedAt    time.Time `db:"refreshed_at"`
}

// SaveSnapshot records the counts of the latest successful refresh.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	userID int64,
	counts model.NotificationCounts,
	at time.Time,
) error {
	counts = counts.Clamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO badge_snapshots (
			user_id, dashboard, reviews, messages, pending_reviews, my_bids, refreshed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, counts.Dashboard, counts.Reviews, counts.Messages,
		counts.PendingReviews, counts.MyBids, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving badge snapshot: %w", err)
	}
	return nil
}

// LastSnapshot returns the most recently saved counts or ErrNotFound.
func (s *SQLiteStore) LastSnapshot(
	ctx context.Context,
	userID int64,
) (model.NotificationCounts, time.Time, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT dashboard, reviews, messages, pending_reviews, my_bids, refreshed_at
		FROM badge_snapshots WHERE user_id = ?`, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotificationCounts{}, time.Time{}, fmt.Errorf("badge snapshot for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return model.NotificationCounts{}, time.Time{}, fmt.Errorf("querying badge snapshot: %w", err)
	}

	counts := model.NotificationCounts{
		Dashboard:      row.Dashboard,
		Reviews:        row.Reviews,
		Messages:       row.Messages,
		PendingReviews: row.PendingReviews,
		MyBids:         row.MyBids,
	}
	return counts, row.RefreshedAt, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
