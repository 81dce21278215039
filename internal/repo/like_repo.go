// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Like model.
//
// The (post_id, user_id) pair is unique at the schema level
// (ux_like_post_user); CreateLike surfaces a violation as ErrDuplicate so
// the service layer can treat a lost insert race as "already liked" without
// touching the counter.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// GetLike returns the Like row for (postID, userID), or ErrNotFound.
func GetLike(ctx context.Context, db *gorm.DB, postID, userID string) (*domain.Like, error) {
	var l domain.Like
	err := db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LikeExists reports whether userID has liked postID.
func LikeExists(ctx context.Context, db *gorm.DB, postID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

// CreateLike inserts a Like row. Returns ErrDuplicate when the
// (post_id, user_id) pair already exists.
func CreateLike(ctx context.Context, db *gorm.DB, postID, userID string) (*domain.Like, error) {
	l := &domain.Like{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// DeleteLike removes the Like row for (postID, userID) and reports how many
// rows were removed, so callers can make the counter update conditional on
// the row actually going away.
func DeleteLike(ctx context.Context, db *gorm.DB, postID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&domain.Like{})
	return res.RowsAffected, res.Error
}
