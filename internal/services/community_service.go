// Package services – CommunityService
//
// This file implements CommunityService, which governs the shared community
// feed: publishing snapshots of an exchange, listing and searching them,
// toggling likes, and attaching comments. It enforces existence and
// ownership rules and persists each mutation atomically in the database.
// Service-level errors (ErrPostNotFound, ErrCommentNotFound, ErrForbidden)
// are returned for predictable cases so handlers can map them to HTTP
// results consistently.
//
// Like semantics:
//   - The (post_id, user_id) uniqueness of a Like is a schema constraint.
//   - The denormalized like counter on the post is updated ONLY when the
//     corresponding Like insert or delete actually changed a row, so two
//     racing toggles cannot drift the counter away from the surviving rows.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tchatlab/tchat-backend/internal/domain"
	"github.com/tchatlab/tchat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostSort selects the ordering of a feed listing.
type PostSort string

// Feed orderings. Anything else is treated as SortRecency.
const (
	SortRecency    PostSort = "recency"
	SortPopularity PostSort = "popularity"
)

// PostView is a SharedPost augmented at read time with the live comment
// count and the viewer-specific liked flag. Neither field is stored.
type PostView struct {
	domain.SharedPost
	CommentCount    int64 `json:"comment_count"`
	IsLikedByViewer bool  `json:"is_liked_by_viewer"`
}

// CommunityService implements the use-cases around the shared feed. It is
// context-aware and safe for concurrent use; mutations open their own
// transaction per call.
type CommunityService struct {
	// DB is the database handle used for all feed operations.
	DB *gorm.DB
	// Directory resolves owner ids before they are trusted.
	Directory UserDirectory
}

// NewCommunityService constructs a CommunityService over db using dir as
// the user directory.
func NewCommunityService(db *gorm.DB, dir UserDirectory) *CommunityService {
	return &CommunityService{DB: db, Directory: dir}
}

// Share publishes an immutable snapshot of one exchange to the feed. The
// sharer is resolved through the directory and their id and display name
// are frozen into the post. When messageID is non-empty the stored message
// is flagged public in the same transaction. The created post is returned
// as a view with zero comments and an unliked flag.
func (s *CommunityService) Share(ctx context.Context, ownerID, title, tags, userText, botText, messageID string) (*PostView, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "Share",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	user, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var tagsPtr *string
	if strings.TrimSpace(tags) != "" {
		tagsPtr = &tags
	}

	var post *domain.SharedPost
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.CreatePost(ctx, tx, user.Email, user.Username, title, tagsPtr, userText, botText)
		if err != nil {
			return err
		}
		post = p
		if messageID != "" {
			return repo.MarkMessagePublic(tx, messageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PostView{SharedPost: *post}, nil
}

// ListPosts returns every post in the feed, ordered by recency or
// popularity, augmented per viewer.
func (s *CommunityService) ListPosts(ctx context.Context, sort PostSort, viewerID string) ([]PostView, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "ListPosts",
		trace.WithAttributes(attribute.String("sort", string(sort))),
	)
	defer span.End()

	var (
		posts []domain.SharedPost
		err   error
	)
	if sort == SortPopularity {
		posts, err = repo.ListPostsByPopularity(ctx, s.DB)
	} else {
		posts, err = repo.ListPostsByRecency(ctx, s.DB)
	}
	if err != nil {
		return nil, err
	}
	return s.augment(ctx, posts, viewerID)
}

// Search filters the feed by a case-insensitive substring match of keyword
// against title, user text, bot text, and tags (absent tags never match).
// A blank keyword degenerates to ListPosts by recency.
func (s *CommunityService) Search(ctx context.Context, keyword, viewerID string) ([]PostView, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("keyword", keyword)),
	)
	defer span.End()

	if strings.TrimSpace(keyword) == "" {
		return s.ListPosts(ctx, SortRecency, viewerID)
	}

	posts, err := repo.ListPostsByRecency(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(keyword)
	matched := posts[:0:0]
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.UserText), needle) ||
			strings.Contains(strings.ToLower(p.BotText), needle) ||
			(p.Tags != nil && strings.Contains(strings.ToLower(*p.Tags), needle)) {
			matched = append(matched, p)
		}
	}
	return s.augment(ctx, matched, viewerID)
}

// MyPosts returns the posts shared by ownerID, newest first, with the same
// augmentation as ListPosts.
func (s *CommunityService) MyPosts(ctx context.Context, ownerID string) ([]PostView, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "MyPosts",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	posts, err := repo.ListPostsByUser(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	return s.augment(ctx, posts, ownerID)
}

// ToggleLike flips the binary like state for (postID, userID) and adjusts
// the post's counter in the same transaction. The counter moves only when
// the Like row mutation succeeded: a delete that removed nothing, or an
// insert lost to the unique constraint, leaves the counter untouched.
// Returns the post re-read after the toggle, with the viewer's new flag.
func (s *CommunityService) ToggleLike(ctx context.Context, postID, userID string) (*PostView, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "ToggleLike",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetPost(ctx, tx, postID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		liked, err := repo.LikeExists(ctx, tx, postID, userID)
		if err != nil {
			return err
		}
		if liked {
			removed, err := repo.DeleteLike(ctx, tx, postID, userID)
			if err != nil {
				return err
			}
			if removed > 0 {
				return repo.DecrementPostLikes(ctx, tx, postID)
			}
			return nil
		}

		if _, err := repo.CreateLike(ctx, tx, postID, userID); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// A concurrent toggle won the insert; the like exists and
				// its winner already incremented the counter.
				return nil
			}
			return err
		}
		return repo.IncrementPostLikes(ctx, tx, postID)
	})
	if err != nil {
		return nil, err
	}

	post, err := repo.GetPost(ctx, s.DB, postID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, post, userID)
}

// AddComment attaches a comment to a post on behalf of userID, whose
// display name is resolved through the directory at write time. Fails with
// ErrPostNotFound when the post is absent.
func (s *CommunityService) AddComment(ctx context.Context, postID, userID, content string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "AddComment",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	user, err := s.resolveOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := repo.GetPost(ctx, s.DB, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return repo.CreateComment(ctx, s.DB, postID, user.Email, user.Username, content)
}

// ListComments returns the comments of a post, newest first.
func (s *CommunityService) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "ListComments",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	return repo.ListComments(ctx, s.DB, postID)
}

// DeleteComment removes a comment. Only the comment's author may delete it:
// an absent comment fails with ErrCommentNotFound, a foreign one with
// ErrForbidden.
func (s *CommunityService) DeleteComment(ctx context.Context, commentID, callerUserID string) error {
	tr := otel.Tracer("services/CommunityService")
	ctx, span := tr.Start(ctx, "DeleteComment",
		trace.WithAttributes(attribute.String("comment.id", commentID)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetComment(ctx, tx, commentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}
		if c.UserID != callerUserID {
			return ErrForbidden
		}
		return repo.DeleteComment(ctx, tx, commentID)
	})
}

// augment decorates a post slice with live comment counts and the viewer's
// liked flags, preserving order.
func (s *CommunityService) augment(ctx context.Context, posts []domain.SharedPost, viewerID string) ([]PostView, error) {
	out := make([]PostView, 0, len(posts))
	for i := range posts {
		v, err := s.view(ctx, &posts[i], viewerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// view builds the read-time augmentation for a single post.
func (s *CommunityService) view(ctx context.Context, post *domain.SharedPost, viewerID string) (*PostView, error) {
	count, err := repo.CountComments(ctx, s.DB, post.ID)
	if err != nil {
		return nil, err
	}
	liked := false
	if viewerID != "" {
		liked, err = repo.LikeExists(ctx, s.DB, post.ID, viewerID)
		if err != nil {
			return nil, err
		}
	}
	return &PostView{
		SharedPost:      *post,
		CommentCount:    count,
		IsLikedByViewer: liked,
	}, nil
}

// resolveOwner maps directory failures to the service-level sentinel.
func (s *CommunityService) resolveOwner(ctx context.Context, ownerID string) (*domain.User, error) {
	user, err := s.Directory.Resolve(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
