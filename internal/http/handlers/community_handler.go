// Community HTTP handlers.
//
// This file exposes the shared-feed endpoints:
//   - POST   /community/posts                 (share an exchange)
//   - GET    /community/posts                 (list, ?sort=recent|popular)
//   - GET    /community/posts/search          (keyword search)
//   - GET    /community/posts/mine            (caller's posts)
//   - POST   /community/posts/{id}/like       (toggle like)
//   - POST   /community/posts/{id}/comments   (add comment)
//   - GET    /community/posts/{id}/comments   (list comments)
//   - DELETE /community/comments/{id}         (delete own comment)
package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tchatlab/tchat-backend/internal/services"
	"github.com/tchatlab/tchat-backend/internal/utils"
)

// maxCommentRunes caps comment length at the edge; storage enforces the
// same bound via the column type.
const maxCommentRunes = 1000

//
// DTOs
//

// SharePostRequest is the JSON payload for publishing an exchange.
type SharePostRequest struct {
	// Title names the post in the feed.
	Title string `json:"title" binding:"required,min=1,max=200" example:"T talked me out of a 3am bread order"`
	// Tags is an optional comma-separated tag list.
	Tags string `json:"tags" example:"comfort,food"`
	// UserText is the user half of the shared exchange.
	UserText string `json:"user_text" binding:"required,min=1"`
	// BotText is the assistant half of the shared exchange.
	BotText string `json:"bot_text" binding:"required,min=1"`
	// MessageID optionally links the post back to a stored message, which
	// is then flagged public.
	MessageID string `json:"message_id" example:"6df47a0e-21f2-41f8-9b7e-2f3cc04f86b1"`
}

// AddCommentRequest is the JSON payload for commenting on a post.
type AddCommentRequest struct {
	Content string `json:"content" binding:"required,min=1" example:"Same. The bread never helps."`
}

// ListPostsResponse wraps a feed page.
type ListPostsResponse struct {
	Posts []services.PostView `json:"posts"`
}

// ListCommentsResponse wraps a post's comments.
type ListCommentsResponse struct {
	Comments any   `json:"comments"`
	Count    int64 `json:"count"`
}

//
// Handlers
//

// SharePost godoc
// @ID          sharePost
// @Summary     Share an exchange to the community feed
// @Description Publishes a frozen snapshot of one user/assistant exchange under the caller's display name.
// @Tags        Community
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       body       body    handlers.SharePostRequest  true  "Share payload"
//
// @Success     201  {object} services.PostView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Unknown user"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts [post]
func (h *Handlers) SharePost(c *gin.Context) {
	var req SharePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title, user_text and bot_text are required")
		return
	}

	view, err := h.commSvc.Share(c.Request.Context(), userID(c),
		strings.TrimSpace(req.Title), strings.TrimSpace(req.Tags),
		req.UserText, req.BotText, strings.TrimSpace(req.MessageID))
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, view)
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List community posts
// @Description Returns the shared feed. sort=popular orders by like count (ties newest first); anything else orders by recency.
// @Tags        Community
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       sort       query   string  false "Sort order"  Enums(recent, popular)  default(recent)
// @Param       limit      query   int     false "Cap the number of returned posts"  example(20)
//
// @Success     200  {object} handlers.ListPostsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	sort := services.SortRecency
	if c.Query("sort") == "popular" {
		sort = services.SortPopularity
	}

	posts, err := h.commSvc.ListPosts(c.Request.Context(), sort, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{Posts: capPosts(posts, c.Query("limit"))})
}

// capPosts truncates a feed page to the client-requested limit. Zero or
// invalid limits leave the page untouched.
func capPosts(posts []services.PostView, rawLimit string) []services.PostView {
	limit := utils.AtoiDefault(rawLimit, 0)
	if limit > 0 && limit < len(posts) {
		return posts[:limit]
	}
	return posts
}

// SearchPosts godoc
// @ID          searchPosts
// @Summary     Search community posts
// @Description Case-insensitive keyword match over title, tags, and both sides of the shared exchange. A blank keyword returns the recency-ordered feed.
// @Tags        Community
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       q          query   string  false "Search keyword"  example(bread)
// @Param       limit      query   int     false "Cap the number of returned posts"  example(20)
//
// @Success     200  {object} handlers.ListPostsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts/search [get]
func (h *Handlers) SearchPosts(c *gin.Context) {
	posts, err := h.commSvc.Search(c.Request.Context(), c.Query("q"), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{Posts: capPosts(posts, c.Query("limit"))})
}

// MyPosts godoc
// @ID          myPosts
// @Summary     List the caller's own posts
// @Tags        Community
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
//
// @Success     200  {object} handlers.ListPostsResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown user"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts/mine [get]
func (h *Handlers) MyPosts(c *gin.Context) {
	posts, err := h.commSvc.MyPosts(c.Request.Context(), userID(c))
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{Posts: posts})
}

// ToggleLike godoc
// @ID          toggleLike
// @Summary     Toggle a like on a post
// @Description Likes the post if the caller has not liked it, removes the like otherwise. Returns the post with updated counters.
// @Tags        Community
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Post ID (UUID)"         format(uuid)
//
// @Success     200  {object} services.PostView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts/{id}/like [post]
func (h *Handlers) ToggleLike(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	view, err := h.commSvc.ToggleLike(c.Request.Context(), postID, userID(c))
	if err != nil {
		switch err {
		case services.ErrPostNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, view)
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on a post
// @Tags        Community
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Post ID (UUID)"         format(uuid)
// @Param       body       body    handlers.AddCommentRequest  true  "Comment payload"
//
// @Success     201  {object} domain.Comment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post or user not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	if utf8.RuneCountInString(content) > maxCommentRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "comment too long")
		return
	}

	comment, err := h.commSvc.AddComment(c.Request.Context(), postID, userID(c), content)
	if err != nil {
		switch err {
		case services.ErrPostNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, comment)
}

// ListComments godoc
// @ID          listComments
// @Summary     List a post's comments
// @Description Returns the post's comments newest first together with a total count.
// @Tags        Community
// @Produce     json
//
// @Param       id  path  string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ListCommentsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/posts/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	comments, err := h.commSvc.ListComments(c.Request.Context(), postID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCommentsResponse{Comments: comments, Count: int64(len(comments))})
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete one of the caller's comments
// @Tags        Community
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(tee@example.com)
// @Param       id         path    string  true  "Comment ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the comment author"
// @Failure     404  {object} handlers.ErrorResponse "Comment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /community/comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	commentID := c.Param("id")
	if _, err := uuid.Parse(commentID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "comment id must be a UUID")
		return
	}

	if err := h.commSvc.DeleteComment(c.Request.Context(), commentID, userID(c)); err != nil {
		switch err {
		case services.ErrCommentNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "comment not found")
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the author may delete a comment")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
