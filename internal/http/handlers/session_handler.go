// Session HTTP handlers.
//
// This file exposes REST endpoints for conversation sessions:
//   - POST   /sessions              (create)
//   - GET    /sessions              (list with previews, ETag support)
//   - GET    /sessions/{id}         (detail with full message history)
//   - DELETE /sessions/{id}         (delete, cascading to messages)
//   - PUT    /sessions/{id}/title   (rename)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
	"github.com/tchatlab/tchat-backend/internal/llm"
	"github.com/tchatlab/tchat-backend/internal/repo"
	"github.com/tchatlab/tchat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// SessionService defines session lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SessionService interface {
	// Create starts a new session for ownerID with optional mode and title.
	Create(ctx context.Context, ownerID, mode, title string) (*domain.ChatSession, error)
	// AppendTurn stores one user/bot exchange on a session.
	AppendTurn(ctx context.Context, sessionID, userText, botText, callerOwnerID string) (*domain.Message, error)
	// List returns the owner's sessions, most recently active first.
	List(ctx context.Context, ownerID string) ([]services.SessionSummary, error)
	// Detail returns a session and its ordered message history.
	Detail(ctx context.Context, sessionID, callerOwnerID string) (*services.SessionDetail, error)
	// Delete removes a session and all of its messages.
	Delete(ctx context.Context, sessionID, callerOwnerID string) error
	// UpdateTitle renames a session that belongs to the caller.
	UpdateTitle(ctx context.Context, sessionID, newTitle, callerOwnerID string) (*domain.ChatSession, error)
}

// CommunityService defines the shared-feed operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CommunityService interface {
	// Share publishes a snapshot of one exchange to the feed.
	Share(ctx context.Context, ownerID, title, tags, userText, botText, messageID string) (*services.PostView, error)
	// ListPosts returns the feed ordered by recency or popularity.
	ListPosts(ctx context.Context, sort services.PostSort, viewerID string) ([]services.PostView, error)
	// Search filters the feed by a case-insensitive keyword.
	Search(ctx context.Context, keyword, viewerID string) ([]services.PostView, error)
	// MyPosts returns the viewer's own posts.
	MyPosts(ctx context.Context, ownerID string) ([]services.PostView, error)
	// ToggleLike flips the viewer's like on a post.
	ToggleLike(ctx context.Context, postID, userID string) (*services.PostView, error)
	// AddComment attaches a comment to a post.
	AddComment(ctx context.Context, postID, userID, content string) (*domain.Comment, error)
	// ListComments returns a post's comments, newest first.
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	// DeleteComment removes a comment owned by the caller.
	DeleteComment(ctx context.Context, commentID, callerUserID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for sessions, chat turns, and the
// community feed. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	sessionSvc SessionService
	commSvc    CommunityService
	responder  llm.Responder
}

// New constructs and returns a Handlers instance bound to the given
// services and LLM responder.
func New(sessionSvc SessionService, commSvc CommunityService, responder llm.Responder) *Handlers {
	return &Handlers{sessionSvc: sessionSvc, commSvc: commSvc, responder: responder}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateSessionRequest is the JSON payload for creating a session.
type CreateSessionRequest struct {
	// Mode optionally selects the assistant persona; default is "default".
	Mode string `json:"mode" example:"love"`
	// Title optionally sets the session title; the sentinel placeholder is
	// used when empty so the first turn can derive one.
	Title string `json:"title" example:"Late night worries"`
}

// UpdateSessionTitleRequest is the JSON payload for renaming a session.
type UpdateSessionTitleRequest struct {
	// Title is the new session name (1–200 chars, not blank).
	Title string `json:"title" binding:"required,min=1,max=200" example:"Bread and feelings"`
}

// ListSessionsResponse wraps the session list.
type ListSessionsResponse struct {
	Sessions []services.SessionSummary `json:"sessions"`
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Create a new session
// @Description Creates a conversation session for the current user and returns it.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       body       body    handlers.CreateSessionRequest  true  "Create session payload"
//
// @Success     201  {object}  domain.ChatSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), userID(c), req.Mode, strings.TrimSpace(req.Title))
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List sessions
// @Description Returns the user's sessions ordered by last activity, each with a message count and preview. Supports weak ETag via If-None-Match.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(tee@example.com)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Unknown user"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	if db := h.sessionDB(); db != nil {
		if user, err := repo.GetUserByEmail(ctx, db, uid); err == nil {
			count, maxTS, err := repo.SessionsStats(ctx, db, user.ID)
			if err == nil {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, uid, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	items, err := h.sessionSvc.List(ctx, uid)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ListSessionsResponse{Sessions: items})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get a session with its messages
// @Description Returns the session and its full message history ordered oldest first. Only the owner may read it.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
//
// @Success     200  {object} services.SessionDetail
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	detail, err := h.sessionSvc.Detail(c.Request.Context(), sessionID, userID(c))
	if err != nil {
		switch err {
		case services.ErrSessionNotFound, services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, detail)
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Delete a session
// @Description Deletes a session owned by the current user together with all of its messages.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	if err := h.sessionSvc.Delete(c.Request.Context(), sessionID, userID(c)); err != nil {
		switch err {
		case services.ErrSessionNotFound, services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// UpdateSessionTitle godoc
// @ID          updateSessionTitle
// @Summary     Rename a session
// @Description Updates the title of a session owned by the current user.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       body       body    handlers.UpdateSessionTitleRequest  true  "New title"
//
// @Success     200  {object} domain.ChatSession
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/title [put]
func (h *Handlers) UpdateSessionTitle(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req UpdateSessionTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1–200 chars)")
		return
	}

	sess, err := h.sessionSvc.UpdateTitle(c.Request.Context(), sessionID, req.Title, userID(c))
	if err != nil {
		switch err {
		case services.ErrEmptyTitle:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title must not be blank")
		case services.ErrSessionNotFound, services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sess)
}

// sessionDB exposes the concrete service's DB handle for best-effort
// transport concerns (ETags, idempotency replay). Returns nil when the
// service is a test double.
func (h *Handlers) sessionDB() *gorm.DB {
	if svc, okSvc := h.sessionSvc.(*services.SessionService); okSvc {
		return svc.DB
	}
	return nil
}
