package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/crown/internal/models"
)

const (
	oauthStateCookie    = "crown_oauth_state"
	oauthVerifierCookie = "crown_oauth_verifier"
	oauthCookieMaxAge   = 10 * 60
)

type SignupInput struct {
	Username string `form:"username" binding:"required,max=64"`
	Email    string `form:"email" binding:"omitempty,email"`
	Password string `form:"password" binding:"required"`
}

type LoginInput struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Signup registers a local user and signs them in. Every failure is logged
// and sends the browser home.
func (e *Env) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBind(&input); err != nil {
		e.Log.WarnContext(c.Request.Context(), "invalid signup input", "error", err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := e.Identity.RegisterLocal(c.Request.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		e.Log.WarnContext(c.Request.Context(), "signup failed", "error", err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	e.startSession(c, user)
	c.Redirect(http.StatusFound, "/")
}

// Login checks local credentials and signs the user in.
func (e *Env) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := e.Identity.AuthenticateLocal(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		e.Log.WarnContext(c.Request.Context(), "login failed", "username", input.Username, "error", err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	e.startSession(c, user)
	c.Redirect(http.StatusFound, "/")
}

// Logout ends the session. Logging out twice is harmless.
func (e *Env) Logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		if err := e.Sessions.Terminate(c.Request.Context(), token); err != nil {
			e.Log.ErrorContext(c.Request.Context(), "terminate session failed", "error", err)
		}
	}

	e.clearCookie(c, sessionCookie, "/")
	c.Redirect(http.StatusFound, "/")
}

// BeginProviderAuth sends the browser to the provider's consent page.
func (e *Env) BeginProviderAuth(c *gin.Context) {
	provider := c.Param("provider")

	redirect, err := e.Broker.BeginAuth(provider)
	if err != nil {
		e.Log.WarnContext(c.Request.Context(), "begin provider auth failed", "provider", provider, "error", err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	path := "/auth/" + provider
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, redirect.State, oauthCookieMaxAge, path, "", e.SecureCookies, true)
	c.SetCookie(oauthVerifierCookie, redirect.Verifier, oauthCookieMaxAge, path, "", e.SecureCookies, true)

	c.Redirect(http.StatusFound, redirect.URL)
}

// ProviderCallback completes a federated login. Any failure is a soft
// redirect home without a session.
func (e *Env) ProviderCallback(c *gin.Context) {
	provider := c.Param("provider")
	path := "/auth/" + provider

	state, _ := c.Cookie(oauthStateCookie)
	verifier, _ := c.Cookie(oauthVerifierCookie)
	e.clearCookie(c, oauthStateCookie, path)
	e.clearCookie(c, oauthVerifierCookie, path)

	if errParam := c.Query("error"); errParam != "" {
		e.Log.WarnContext(c.Request.Context(), "provider denied login", "provider", provider, "error", errParam)
		c.Redirect(http.StatusFound, "/")
		return
	}

	got := c.Query("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(got)) != 1 {
		e.Log.WarnContext(c.Request.Context(), "provider state mismatch", "provider", provider)
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := e.Broker.CompleteAuth(c.Request.Context(), provider, c.Query("code"), verifier)
	if err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	e.startSession(c, user)
	c.Redirect(http.StatusFound, "/")
}

// startSession establishes a session and sets its cookie. A failure leaves
// the caller anonymous.
func (e *Env) startSession(c *gin.Context, user *models.User) {
	token, err := e.Sessions.Establish(c.Request.Context(), user)
	if err != nil {
		e.Log.ErrorContext(c.Request.Context(), "establish session failed", "user_id", user.ID, "error", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(e.Sessions.TTL().Seconds()), "/", "", e.SecureCookies, true)
}

func (e *Env) clearCookie(c *gin.Context, name, path string) {
	if _, err := c.Cookie(name); err != nil {
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, path, "", e.SecureCookies, true)
}
