// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatSession model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateSession inserts a new ChatSession row owned by userID with the given
// title and mode. The session ID is a randomly generated UUID (string), and
// CreatedAt/UpdatedAt are set to UTC.
//
// On success, it returns the persisted ChatSession. On failure, it returns
// a DB error.
func CreateSession(ctx context.Context, db *gorm.DB, userID, mode, title string) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a single session by its ID. Ownership is not filtered
// here; callers that need an ownership check compare the loaded UserID
// themselves. Returns ErrNotFound when the row does not exist.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns all sessions belonging to userID, ordered by
// updated_at descending (most recently active first). It returns an empty
// slice if the user has no sessions. On DB error, it returns the error.
func ListSessions(ctx context.Context, db *gorm.DB, userID string) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// UpdateSessionTitle overwrites the title of a session and bumps its
// updated_at timestamp. If no rows are affected (session missing), it
// returns ErrNotFound. On DB error, the raw error is returned.
func UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":      title,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchSession bumps the session's updated_at timestamp. Used after a turn
// is appended so session lists sort by recent activity.
func TouchSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}

// DeleteSession removes the session row and every message that references
// it, messages first, inside the caller's handle. The ORM cascade of the
// original schema is re-expressed as two explicit deletes; run this inside
// a transaction.
func DeleteSession(ctx context.Context, db *gorm.DB, id string) error {
	if err := db.WithContext(ctx).
		Where("session_id = ?", id).
		Delete(&domain.Message{}).Error; err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
