// Package domain defines the persistence models for chat sessions, their
// message history, and the community feed (shared posts, likes, comments).
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import "time"

// Title and preview sentinels shared by the service layer. A freshly created
// session carries TitleSentinel until the first turn derives a real title.
const (
	TitleSentinel      = "New conversation"
	PreviewPlaceholder = "No messages yet"
)

// User is an account record resolved by email. The core never mutates users;
// it only resolves caller-supplied owner ids against this table before
// trusting them.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: opaque owner identifier used throughout the API; unique.
//   - Username: display name captured into shared posts and comments.
//   - Password: credential hash; retained for schema compatibility, never
//     read by the core.
type User struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Username  string    `json:"username" gorm:"type:varchar(100);not null"`
	Password  string    `json:"-"        gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ChatSession represents a conversation owned by one user. The title starts
// as TitleSentinel and is derived from the first user message unless the
// owner renames it. Mode selects the assistant persona; unrecognized values
// are stored as-is and forwarded to the prompt builder unvalidated.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the session owner; indexed for retrieval.
//   - Title: session title, at most 200 characters.
//   - Mode: persona tag ("default", "love", "tbrainwash", or anything else).
//   - CreatedAt: immutable creation timestamp.
//   - UpdatedAt: bumped on every appended turn and title edit; session lists
//     are ordered by this column descending.
type ChatSession struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_sessions"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	Mode      string    `json:"mode"       gorm:"type:varchar(20);not null;default:'default'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// Message is one user/assistant exchange. A message normally belongs to a
// session, but the session reference is nullable: a message may exist
// outside any session. Deleting a session deletes all its messages
// explicitly inside one transaction (no soft deletion; the rows go away).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: author of the user half of the turn.
//   - SessionID: optional owning session; nil when the message is detached.
//   - UserText / BotText: the stored exchange.
//   - IsPublic: set when the exchange has been shared to the community feed.
//   - CreatedAt: immutable; messages are listed by it ascending.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	SessionID *string   `json:"session_id" gorm:"type:char(36);index:idx_session_msgs"`
	UserText  string    `json:"user_text"  gorm:"type:text;not null"`
	BotText   string    `json:"bot_text"   gorm:"type:text;not null"`
	IsPublic  bool      `json:"is_public"  gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "chat_history" }

// SharedPost is an immutable public snapshot of one exchange. Owner id and
// display name are captured at share time and stay frozen even if the live
// user record changes. Only the Likes counter mutates after creation; there
// is no delete or edit operation on posts.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID / Username: sharing user's id and display name (snapshot).
//   - Title: post title, at most 200 characters.
//   - Tags: optional free-text tags (comma separated); nullable.
//   - UserText / BotText: the shared exchange.
//   - Likes: denormalized like counter; starts at 0, never negative.
//     Updated only when the matching Like row mutation succeeded.
type SharedPost struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"   gorm:"type:varchar(255);not null;index"`
	Username  string    `json:"username"  gorm:"type:varchar(100);not null"`
	Title     string    `json:"title"     gorm:"type:varchar(200);not null"`
	Tags      *string   `json:"tags"      gorm:"type:varchar(500)"`
	UserText  string    `json:"user_text" gorm:"type:text;not null"`
	BotText   string    `json:"bot_text"  gorm:"type:text;not null"`
	Likes     int       `json:"likes"     gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for SharedPost.
func (SharedPost) TableName() string { return "shared_chats" }

// Like marks that one user liked one post. At most one row may exist per
// (post_id, user_id) pair; the unique index is the source of truth for that
// invariant, not business logic. Likes are hard-deleted on toggle so a
// re-like can reuse the pair.
type Like struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id" gorm:"type:char(36);not null;uniqueIndex:ux_like_post_user,priority:1"`
	UserID    string    `json:"user_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_like_post_user,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string { return "chat_likes" }

// Comment is attached to a shared post by any user and may only be removed
// by its author. Content is stored as-is (presence checked at the boundary,
// capped at 1000 characters, no trimming).
type Comment struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"  gorm:"type:char(36);not null;index:idx_post_comments"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(255);not null"`
	Username  string    `json:"username" gorm:"type:varchar(100);not null"`
	Content   string    `json:"content"  gorm:"type:varchar(1000);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }
