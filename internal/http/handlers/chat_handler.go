// Chat-turn HTTP handler.
//
// This file exposes the endpoint that drives a conversation:
//   - POST /chat  (send a message, receive the assistant reply)
//
// The handler obtains the reply from the LLM collaborator, then asks the
// session service to append the turn, creating a session implicitly when
// the request names none. Prior turns for prompt context travel with the
// request, mirroring the original client contract.
//
// Idempotency:
// If the client supplies an Idempotency-Key header together with a session
// id and a previous successful result exists for (user, session, key), the
// handler returns that recorded turn and sets `Idempotency-Replayed: true`
// without re-invoking the model.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tchatlab/tchat-backend/internal/domain"
	"github.com/tchatlab/tchat-backend/internal/http/middleware"
	"github.com/tchatlab/tchat-backend/internal/repo"
	"github.com/tchatlab/tchat-backend/internal/services"
)

// maxMessageRunes caps a single user message at the edge.
const maxMessageRunes = 2000

//
// DTOs
//

// TurnContext is one prior exchange supplied by the client for prompt
// context. It never touches storage.
type TurnContext struct {
	UserText string `json:"user_text"`
	BotText  string `json:"bot_text"`
}

// ChatRequest is the JSON payload for sending a chat message.
type ChatRequest struct {
	// Message is the user text. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"I was feeling down so I bought bread"`
	// Mode selects the assistant persona; stored on a newly created session.
	Mode string `json:"mode" example:"default"`
	// SessionID continues an existing session when set; otherwise a new
	// session is created and returned in the response.
	SessionID string `json:"session_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// History carries prior turns for prompt context.
	History []TurnContext `json:"history"`
}

// ChatResponse is the JSON envelope for a completed turn.
type ChatResponse struct {
	// Message is the assistant reply.
	Message string `json:"message"`
	// SessionID identifies the session the turn was appended to.
	SessionID string `json:"session_id"`
	// MessageID identifies the stored exchange.
	MessageID string `json:"message_id"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// historyMessages converts the request context turns into domain messages
// for the prompt builder.
func historyMessages(turns []TurnContext) []domain.Message {
	if len(turns) == 0 {
		return nil
	}
	out := make([]domain.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, domain.Message{UserText: t.UserText, BotText: t.BotText})
	}
	return out
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Send a message and get the assistant reply
// @Description Generates the assistant reply for the message, appends the turn to the session
// @Description (creating one when session_id is absent), and returns reply plus session id.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ChatRequest  true  "Chat payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Session or user not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	message := sanitizeContent(req.Message)
	if message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxMessageRunes))
		return
	}

	currentUser := userID(c)
	sessionID := strings.TrimSpace(req.SessionID)

	// Idempotency (replay path) – only meaningful for an existing session.
	idemKey, _ := idempotencyKey(c)
	if idemKey != "" && sessionID != "" {
		if db := h.sessionDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, currentUser, sessionID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(db, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, ChatResponse{
						Message:   prev.BotText,
						SessionID: sessionID,
						MessageID: prev.ID,
					})
					return
				}
			}
		}
	}

	// The collaborator degrades to a fixed apology on failure; it never errors.
	botText := h.responder.Reply(ctx, req.Mode, historyMessages(req.History), message)

	if sessionID == "" {
		sess, err := h.sessionSvc.Create(ctx, currentUser, req.Mode, "")
		if err != nil {
			switch err {
			case services.ErrUserNotFound:
				fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			default:
				fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
			}
			return
		}
		sessionID = sess.ID
	}

	m, err := h.sessionSvc.AppendTurn(ctx, sessionID, message, botText, currentUser)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.sessionDB(); db != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, db, currentUser, sessionID, idemKey, m.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, ChatResponse{
		Message:   m.BotText,
		SessionID: sessionID,
		MessageID: m.ID,
	})
}

// idempotencyKey extracts the validated key stashed by the idempotency
// middleware, falling back to the raw header when the middleware is not
// installed (tests exercise handlers directly).
func idempotencyKey(c *gin.Context) (string, bool) {
	if k, okKey := middleware.GetIdempotencyKey(c); okKey {
		return k, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}
