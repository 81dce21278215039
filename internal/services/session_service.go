// Package services – SessionService
//
// This file implements SessionService, the application-level component that
// owns conversation sessions and their ordered message history. It resolves
// caller-supplied owner ids through the user directory, enforces ownership
// on reads, renames, and deletes, derives session titles from the first user
// message, and persists each operation inside one request-scoped
// transaction.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include session/owner identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
	"github.com/tchatlab/tchat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// defaultMode is stored when the caller supplies no mode. Any other
	// value, recognized or not, is stored and forwarded as-is.
	defaultMode = "default"

	// titleMaxRunes caps stored session titles.
	titleMaxRunes = 200

	// previewMaxRunes / previewCutRunes control first-message titles and
	// list previews: text longer than previewMaxRunes is cut to
	// previewCutRunes and suffixed with an ellipsis.
	previewMaxRunes = 50
	previewCutRunes = 47
)

// UserDirectory resolves an opaque owner id (an email) to the internal user
// record, or reports that no such user exists. Every caller-supplied owner
// id passes through here before it is trusted.
type UserDirectory interface {
	Resolve(ctx context.Context, ownerID string) (*domain.User, error)
}

// SessionSummary is one entry of a session listing: the session metadata
// plus a message count and a preview of the latest user text.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
	LastMessage  string    `json:"last_message"`
}

// SessionDetail is a session plus its full ordered message history.
type SessionDetail struct {
	Session  domain.ChatSession `json:"session"`
	Messages []domain.Message   `json:"messages"`
}

// SessionService provides the session lifecycle operations: create, append a
// turn, list with previews, fetch detail, rename, and delete. It is safe for
// concurrent use; every method runs its own transaction against DB.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Directory resolves owner ids before they are trusted.
	Directory UserDirectory
}

// NewSessionService constructs a SessionService over db using dir as the
// user directory.
func NewSessionService(db *gorm.DB, dir UserDirectory) *SessionService {
	return &SessionService{DB: db, Directory: dir}
}

// Create starts a new session for ownerID. Mode defaults to "default" when
// blank and is otherwise stored unvalidated; title defaults to the sentinel
// placeholder so the first turn can derive a real one.
func (s *SessionService) Create(ctx context.Context, ownerID, mode, title string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	user, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if mode == "" {
		mode = defaultMode
	}
	if strings.TrimSpace(title) == "" {
		title = domain.TitleSentinel
	}
	return repo.CreateSession(ctx, s.DB, user.ID, mode, clipRunes(title, titleMaxRunes))
}

// AppendTurn stores one user/bot exchange on a session and bumps the
// session's updated_at. When the session has no messages yet and still
// carries the sentinel title, the title is derived from userText (verbatim
// up to 50 runes, otherwise the first 47 runes plus an ellipsis). A later
// turn never rewrites the title.
//
// The caller is resolved against the user directory but deliberately NOT
// compared with the session owner; see DESIGN.md for why this source
// behavior is preserved.
func (s *SessionService) AppendTurn(ctx context.Context, sessionID, userText, botText, callerOwnerID string) (*domain.Message, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "AppendTurn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("owner.id", callerOwnerID),
		),
	)
	defer span.End()

	if userText == "" {
		return nil, ErrEmptyMessage
	}

	session, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	caller, err := s.resolveOwner(ctx, callerOwnerID)
	if err != nil {
		return nil, err
	}

	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := repo.CountSessionMessages(tx, session.ID)
		if err != nil {
			return err
		}
		if count == 0 && session.Title == domain.TitleSentinel {
			derived := deriveTitle(userText)
			if err := repo.UpdateSessionTitle(ctx, tx, session.ID, derived); err != nil {
				return err
			}
			session.Title = derived
		}

		m, err := repo.CreateMessage(tx, caller.ID, &session.ID, userText, botText)
		if err != nil {
			return err
		}
		msg = m

		return repo.TouchSession(ctx, tx, session.ID)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns the owner's sessions ordered by updated_at descending, each
// carrying its message count and a preview of the last user text (or the
// fixed placeholder when the session is empty).
func (s *SessionService) List(ctx context.Context, ownerID string) ([]SessionSummary, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	user, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sessions, err := repo.ListSessions(ctx, s.DB, user.ID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		count, err := repo.CountSessionMessages(s.DB.WithContext(ctx), sess.ID)
		if err != nil {
			return nil, err
		}
		preview := domain.PreviewPlaceholder
		if count > 0 {
			last, err := repo.LastSessionMessage(s.DB.WithContext(ctx), sess.ID)
			if err != nil {
				return nil, err
			}
			if last != nil {
				preview = deriveTitle(last.UserText)
			}
		}
		out = append(out, SessionSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			Mode:         sess.Mode,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: count,
			LastMessage:  preview,
		})
	}
	return out, nil
}

// Detail returns the session and its full message history, ordered by
// creation time ascending. Ownership is enforced: a mismatch surfaces as
// ErrSessionNotFound just like an absent session.
func (s *SessionService) Detail(ctx context.Context, sessionID, callerOwnerID string) (*SessionDetail, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Detail",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	session, err := s.loadOwnedSession(ctx, sessionID, callerOwnerID)
	if err != nil {
		return nil, err
	}
	msgs, err := repo.ListSessionMessages(s.DB.WithContext(ctx), session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: *session, Messages: msgs}, nil
}

// Delete removes a session and, in the same transaction, every message that
// references it. Ownership is enforced as in Detail.
func (s *SessionService) Delete(ctx context.Context, sessionID, callerOwnerID string) error {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	session, err := s.loadOwnedSession(ctx, sessionID, callerOwnerID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.DeleteSession(ctx, tx, session.ID)
	})
}

// UpdateTitle renames a session. Blank or whitespace-only titles are
// rejected with ErrEmptyTitle; ownership is enforced as in Detail. The
// updated session is returned.
func (s *SessionService) UpdateTitle(ctx context.Context, sessionID, newTitle, callerOwnerID string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "UpdateTitle",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	if strings.TrimSpace(newTitle) == "" {
		return nil, ErrEmptyTitle
	}

	session, err := s.loadOwnedSession(ctx, sessionID, callerOwnerID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateSessionTitle(ctx, s.DB, session.ID, clipRunes(newTitle, titleMaxRunes)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return repo.GetSession(ctx, s.DB, session.ID)
}

// resolveOwner maps directory failures to the service-level sentinel.
func (s *SessionService) resolveOwner(ctx context.Context, ownerID string) (*domain.User, error) {
	user, err := s.Directory.Resolve(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// loadOwnedSession loads a session and verifies the caller owns it. Both an
// absent session and an ownership mismatch come back as ErrSessionNotFound.
func (s *SessionService) loadOwnedSession(ctx context.Context, sessionID, callerOwnerID string) (*domain.ChatSession, error) {
	session, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	caller, err := s.resolveOwner(ctx, callerOwnerID)
	if err != nil {
		return nil, err
	}
	if session.UserID != caller.ID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// deriveTitle produces the auto-generated title (and list preview) from a
// user message: verbatim up to previewMaxRunes, else the first
// previewCutRunes runes followed by "...".
func deriveTitle(userText string) string {
	if utf8.RuneCountInString(userText) > previewMaxRunes {
		return string([]rune(userText)[:previewCutRunes]) + "..."
	}
	return userText
}

// clipRunes truncates s to at most max runes.
func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}
