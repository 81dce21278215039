// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the SharedPost
// model, the community feed's immutable snapshots.
//
// Posts are append-only: no function here deletes or edits a post. The only
// mutation exposed is the conditional like-counter adjustment used by the
// toggle flow, which is deliberately guarded so the counter moves only when
// the matching Like row actually changed.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// CreatePost inserts a shared-post snapshot with a zero like counter.
// userID and username are frozen as of share time.
func CreatePost(ctx context.Context, db *gorm.DB, userID, username, title string, tags *string, userText, botText string) (*domain.SharedPost, error) {
	p := &domain.SharedPost{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Title:     title,
		Tags:      tags,
		UserText:  userText,
		BotText:   botText,
		Likes:     0,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPost fetches a post by ID, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.SharedPost, error) {
	var p domain.SharedPost
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPostsByRecency returns every post, newest first.
func ListPostsByRecency(ctx context.Context, db *gorm.DB) ([]domain.SharedPost, error) {
	var out []domain.SharedPost
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListPostsByPopularity returns every post ordered by like counter
// descending, ties broken by recency.
func ListPostsByPopularity(ctx context.Context, db *gorm.DB) ([]domain.SharedPost, error) {
	var out []domain.SharedPost
	err := db.WithContext(ctx).
		Order("likes desc, created_at desc").
		Find(&out).Error
	return out, err
}

// ListPostsByUser returns the posts shared by userID, newest first.
func ListPostsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SharedPost, error) {
	var out []domain.SharedPost
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// IncrementPostLikes adds one to the like counter. Call only after the
// corresponding Like insert succeeded.
func IncrementPostLikes(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.SharedPost{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error
}

// DecrementPostLikes subtracts one from the like counter, floored at zero by
// the WHERE guard. Call only after the corresponding Like delete removed a
// row.
func DecrementPostLikes(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.SharedPost{}).
		Where("id = ? AND likes > 0", id).
		UpdateColumn("likes", gorm.Expr("likes - 1")).Error
}
