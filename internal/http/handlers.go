package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/crown/internal/forum"
	"github.com/sujalbistaa/crown/internal/identity"
	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
	"github.com/sujalbistaa/crown/internal/oauth"
	"github.com/sujalbistaa/crown/internal/session"
	"github.com/sujalbistaa/crown/internal/ws"
)

// --- Configuration Constants ---
const (
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 3
)

// --- Structs for request binding ---
type CreatePostInput struct {
	Title string `form:"postTitle" binding:"required,max=200"`
	Body  string `form:"postBody" binding:"required,max=10000"`
}

type CommentInput struct {
	Body string `form:"postComment" binding:"required,max=2000"`
}

type RemoveCommentInput struct {
	CommentID string `form:"button" binding:"required"`
}

type VoteInput struct {
	Value int `form:"value" binding:"required,oneof=-1 1"`
}

// Env carries every dependency the handlers use. It is built once at
// process start.
type Env struct {
	Identity *identity.Store
	Sessions *session.Manager
	Broker   *oauth.Broker
	Forum    *forum.Store
	Hub      *ws.Hub
	Limiter  *IPRateLimiter
	Log      logging.Logger

	// SecureCookies marks session cookies Secure.
	SecureCookies bool
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) publish(msgType string, data any) {
	if e.Hub == nil {
		return
	}
	e.Hub.Publish(ws.Message{Type: msgType, Data: data})
}

// --- Pages ---

func (e *Env) Home(c *gin.Context) {
	var providers []string
	if e.Broker != nil {
		providers = e.Broker.Providers()
	}

	c.HTML(http.StatusOK, "home.html", e.view(c, gin.H{"providers": providers}))
}

func (e *Env) PvP(c *gin.Context) {
	c.HTML(http.StatusOK, "pvp.html", e.view(c, gin.H{"title": "PvP"}))
}

// --- Forum ---

func (e *Env) GetForums(c *gin.Context) {
	posts, err := e.Forum.ListPosts(c.Request.Context(), true)
	if err != nil {
		e.Log.ErrorContext(c.Request.Context(), "list posts failed", "error", err)
		e.renderError(c, http.StatusInternalServerError, "Failed to load the forums.")
		return
	}

	c.HTML(http.StatusOK, "forums.html", e.view(c, gin.H{
		"title":      "Forums",
		"foundPosts": posts,
	}))
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBind(&input); err != nil {
		e.Log.WarnContext(c.Request.Context(), "invalid post input", "error", err)
		c.Redirect(http.StatusFound, "/forums")
		return
	}

	post, err := e.Forum.CreatePost(c.Request.Context(), currentUser(c).ID, input.Title, input.Body)
	if err != nil {
		e.Log.ErrorContext(c.Request.Context(), "create post failed", "error", err)
		c.Redirect(http.StatusFound, "/forums")
		return
	}

	e.publish("new_post", gin.H{"id": post.ID, "title": post.Title, "author": currentUser(c).DisplayName()})

	c.Redirect(http.StatusFound, "/forums")
}

func (e *Env) GetPost(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/forums")
		return
	}

	post, err := e.Forum.GetPost(c.Request.Context(), postID, true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.Redirect(http.StatusFound, "/forums")
			return
		}
		e.Log.ErrorContext(c.Request.Context(), "get post failed", "post_id", postID, "error", err)
		e.renderError(c, http.StatusInternalServerError, "Failed to load the post.")
		return
	}

	c.HTML(http.StatusOK, "forumpost.html", e.view(c, gin.H{
		"title":        post.Title,
		"postID":       post.ID,
		"foundPost":    post,
		"postComments": post.Comments,
		"commentUser":  currentUser(c).DisplayName(),
	}))
}

func (e *Env) AddComment(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/forums")
		return
	}
	back := postPath(postID)

	var input CommentInput
	if err := c.ShouldBind(&input); err != nil {
		e.Log.WarnContext(c.Request.Context(), "invalid comment input", "error", err)
		c.Redirect(http.StatusFound, back)
		return
	}

	username := currentUser(c).DisplayName()

	post, err := e.Forum.AddComment(c.Request.Context(), postID, username, input.Body)
	if err != nil {
		e.redirectOnStoreError(c, err, back)
		return
	}

	comment := post.Comments[len(post.Comments)-1]
	e.publish("new_comment", gin.H{"postId": post.ID, "comment": comment})

	c.Redirect(http.StatusFound, back)
}

func (e *Env) RemoveComment(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/forums")
		return
	}
	back := postPath(postID)

	var input RemoveCommentInput
	if err := c.ShouldBind(&input); err != nil {
		c.Redirect(http.StatusFound, back)
		return
	}

	if _, err := e.Forum.RemoveComment(c.Request.Context(), postID, input.CommentID); err != nil {
		e.redirectOnStoreError(c, err, back)
		return
	}

	e.publish("comment_removed", gin.H{"postId": postID, "commentId": input.CommentID})

	c.Redirect(http.StatusFound, back)
}

func (e *Env) VoteOnComment(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/forums")
		return
	}
	back := postPath(postID)
	commentID := c.Param("commentID")

	var input VoteInput
	if err := c.ShouldBind(&input); err != nil {
		c.Redirect(http.StatusFound, back)
		return
	}

	post, err := e.Forum.VoteComment(c.Request.Context(), postID, commentID, input.Value)
	if err != nil {
		e.redirectOnStoreError(c, err, back)
		return
	}

	votes := post.Comments[models.CommentIndex(post.Comments, commentID)].Votes
	e.publish("comment_vote", gin.H{"postId": postID, "commentId": commentID, "votes": votes})

	c.Redirect(http.StatusFound, back)
}

func (e *Env) LiveFeed(c *gin.Context) {
	ws.ServeWs(e.Hub, c.Writer, c.Request)
}

// redirectOnStoreError handles a failed mutation: a missing post goes back to
// the listing, anything else is logged and the caller is sent back unchanged.
func (e *Env) redirectOnStoreError(c *gin.Context, err error, back string) {
	if errors.Is(err, models.ErrNotFound) {
		e.Log.WarnContext(c.Request.Context(), "forum target not found", "error", err)
		c.Redirect(http.StatusFound, "/forums")
		return
	}

	e.Log.ErrorContext(c.Request.Context(), "forum update failed", "error", err)
	c.Redirect(http.StatusFound, back)
}

func (e *Env) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", e.view(c, gin.H{"title": "Error", "message": message}))
}

func parsePostID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("postID"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}

	return uint(id), true
}

func postPath(postID uint) string {
	return "/forums/" + strconv.FormatUint(uint64(postID), 10)
}
