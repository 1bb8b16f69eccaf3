package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

// ErrEmptyPost is returned when a post has no title or no body.
var ErrEmptyPost = errors.New("post title and body are required")

// ErrEmptyComment is returned when a comment has no body.
var ErrEmptyComment = errors.New("comment body is required")

// ErrInvalidVote is returned for a vote other than +1 or -1.
var ErrInvalidVote = errors.New("vote must be 1 or -1")

// Store persists posts and their embedded comments.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	log logging.Logger
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logging.GetLogger("forum.store"),
	}
}

// CreatePost stores a new post by authorID. Callers must have checked that
// the author is signed in.
func (s *Store) CreatePost(ctx context.Context, authorID uint, title, body string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(body) == "" {
		return nil, ErrEmptyPost
	}

	post := &models.Post{
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		Comments:  datatypes.JSONSlice[models.Comment]{},
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, storeErr("insert post", err)
	}

	s.log.DebugContext(ctx, "post created", "post_id", post.ID, "author_id", authorID)

	return post, nil
}

// ListPosts returns every post, newest first. With expandAuthor the author
// of each post is loaded as well.
func (s *Store) ListPosts(ctx context.Context, expandAuthor bool) ([]models.Post, error) {
	var posts []models.Post

	q := s.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if expandAuthor {
		q = q.Preload("Author")
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, storeErr("list posts", err)
	}

	return posts, nil
}

// GetPost returns one post, or models.ErrNotFound.
func (s *Store) GetPost(ctx context.Context, postID uint, expandAuthor bool) (*models.Post, error) {
	q := s.db.WithContext(ctx)
	if expandAuthor {
		q = q.Preload("Author")
	}

	return findPost(q, postID)
}

// AddComment appends a comment to the post inside a single transaction that
// holds the post row.
func (s *Store) AddComment(ctx context.Context, postID uint, username, body string) (*models.Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyComment
	}

	var post *models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findPost(tx.Clauses(clause.Locking{Strength: "UPDATE"}), postID)
		if err != nil {
			return err
		}

		p.Comments = append(p.Comments, models.Comment{
			ID:        uuid.NewString(),
			Body:      body,
			Username:  username,
			CreatedAt: s.now(),
		})

		if err := tx.Model(&models.Post{}).Where("id = ?", p.ID).Update("comments", p.Comments).Error; err != nil {
			return storeErr("append comment", err)
		}

		post = p

		return nil
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// RemoveComment drops commentID from the post by rewriting the whole comment
// collection. The read and the write are not one unit: concurrent removals
// on the same post can overwrite each other.
func (s *Store) RemoveComment(ctx context.Context, postID uint, commentID string) (*models.Post, error) {
	db := s.db.WithContext(ctx)

	post, err := findPost(db, postID)
	if err != nil {
		return nil, err
	}

	post.Comments = models.WithoutComment(post.Comments, commentID)

	if err := db.Model(&models.Post{}).Where("id = ?", post.ID).Update("comments", post.Comments).Error; err != nil {
		return nil, storeErr("replace comments", err)
	}

	return post, nil
}

// VoteComment adds delta (+1 or -1) to a comment's vote counter.
func (s *Store) VoteComment(ctx context.Context, postID uint, commentID string, delta int) (*models.Post, error) {
	if delta != 1 && delta != -1 {
		return nil, ErrInvalidVote
	}

	var post *models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findPost(tx.Clauses(clause.Locking{Strength: "UPDATE"}), postID)
		if err != nil {
			return err
		}

		i := models.CommentIndex(p.Comments, commentID)
		if i < 0 {
			return fmt.Errorf("comment %s: %w", commentID, models.ErrNotFound)
		}
		p.Comments[i].Votes += delta

		if err := tx.Model(&models.Post{}).Where("id = ?", p.ID).Update("comments", p.Comments).Error; err != nil {
			return storeErr("update comment votes", err)
		}

		post = p

		return nil
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

func findPost(q *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post

	if err := q.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", postID, models.ErrNotFound)
		}

		return nil, storeErr("query post", err)
	}

	return &post, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(models.ErrStoreUnavailable, err))
}
