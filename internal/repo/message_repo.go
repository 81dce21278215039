// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// CreateMessage inserts a new message row. sessionID may be nil: a message
// is allowed to exist outside any session.
func CreateMessage(db *gorm.DB, userID string, sessionID *string, userText, botText string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		UserText:  userText,
		BotText:   botText,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListSessionMessages returns all messages of a session ordered
// deterministically (CreatedAt ASC, ID ASC).
func ListSessionMessages(db *gorm.DB, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountSessionMessages uses a raw COUNT so a missing table surfaces as an
// error (as tests expect).
func CountSessionMessages(db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM chat_history WHERE session_id = ?", sessionID).Scan(&total).Error
	return total, err
}

// LastSessionMessage returns the most recently created message of a session,
// or (nil, nil) when the session has no messages.
func LastSessionMessage(db *gorm.DB, sessionID string) (*domain.Message, error) {
	var m domain.Message
	err := db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessagePublic flips the IsPublic flag of a message. Used by the share
// flow when the caller names the message that was published.
func MarkMessagePublic(db *gorm.DB, id string) error {
	return db.Model(&domain.Message{}).
		Where("id = ?", id).
		UpdateColumn("is_public", true).Error
}
