// Package services defines the business logic for chat sessions and the
// community feed. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Session-related errors.
var (
	// ErrUserNotFound indicates that a caller-supplied owner id could not be
	// resolved against the user directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates that the requested session does not exist
	// or is not accessible to the current user. Ownership mismatches on
	// reads surface as this error on purpose: callers learn nothing about
	// sessions they do not own.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyTitle is returned when a title update carries a blank or
	// whitespace-only title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyMessage is returned when a chat turn carries no user text.
	ErrEmptyMessage = errors.New("message is empty")
)

// Community-related errors.
var (
	// ErrPostNotFound indicates that the requested shared post does not exist.
	ErrPostNotFound = errors.New("shared post not found")

	// ErrCommentNotFound indicates that the requested comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrForbidden is returned when a caller tries to delete or modify a
	// resource owned by somebody else.
	ErrForbidden = errors.New("not the owner of this resource")
)
