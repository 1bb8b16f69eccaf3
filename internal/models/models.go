package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// User is a site member. A member signs up locally, or is created on the
// first successful login through a federated provider.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     *string   `gorm:"uniqueIndex" json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash []byte    `json:"-"`
	GoogleID     *string   `gorm:"uniqueIndex" json:"-"`
	FacebookID   *string   `gorm:"uniqueIndex" json:"-"`
	TwitterID    *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// DisplayName is the name shown next to posts and comments.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Username != nil && *u.Username != "":
		return *u.Username
	case u.GoogleID != nil:
		return "Google member"
	case u.FacebookID != nil:
		return "Facebook member"
	case u.TwitterID != nil:
		return "Twitter member"
	default:
		return fmt.Sprintf("member %d", u.ID)
	}
}

// Post is a forum thread. Its comments live inside the post row.
type Post struct {
	ID        uint                         `gorm:"primarykey" json:"id"`
	AuthorID  uint                         `gorm:"not null;index" json:"authorId"`
	Author    *User                        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title     string                       `gorm:"not null" json:"title"`
	Body      string                       `gorm:"not null" json:"body"`
	Comments  datatypes.JSONSlice[Comment] `gorm:"not null" json:"comments"`
	CreatedAt time.Time                    `gorm:"index" json:"createdAt"`
}

// Comment belongs to exactly one Post and has no row of its own.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Username  string    `json:"commentUsername"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"date"`
}

// WithoutComment returns a copy of comments with the comment id removed.
func WithoutComment(comments []Comment, id string) datatypes.JSONSlice[Comment] {
	out := make(datatypes.JSONSlice[Comment], 0, len(comments))
	for _, comment := range comments {
		if comment.ID != id {
			out = append(out, comment)
		}
	}

	return out
}

// CommentIndex returns the position of the comment id, or -1.
func CommentIndex(comments []Comment, id string) int {
	for i, comment := range comments {
		if comment.ID == id {
			return i
		}
	}

	return -1
}

// Session binds a browser token to a user. Only a hash of the token is kept.
type Session struct {
	TokenHash string    `gorm:"primarykey;size:64"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
