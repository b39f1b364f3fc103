package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/service"
)

// SessionCookieName is the cookie carrying the session credential
const SessionCookieName = "session"

// CookieConfig controls the session cookie attributes
type CookieConfig struct {
	Secure bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
	}
}

// Nonce issues a fresh sign-in nonce
func (h *AuthHandlers) Nonce(c *gin.Context) {
	nonce, err := h.authService.IssueNonce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// Verify handles the signed SIWE message and sets the session cookie
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.authService.Verify(c.Request.Context(), req.Message, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, int(h.authService.SessionTTL().Seconds()))

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"address": res.Address,
		"user_id": res.UserID,
	})
}

// Logout clears the session cookie and revokes the credential when configured
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, _ := c.Cookie(SessionCookieName)

	// The cookie goes regardless of what happens to the token
	h.setSessionCookie(c, "", -1)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := SessionFromContext(c)
	if !ok {
		respondError(c, core.ErrNoSession)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": session.Address,
		"user": gin.H{
			"id":         user.ID,
			"email":      nullable(user.Email),
			"plan":       user.Plan,
			"created_at": user.CreatedAt,
		},
		"exp": session.ExpiresAt.Unix(),
	})
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, value, maxAge, "/", "", h.cookie.Secure, true)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// sessionToken reads the session cookie, empty when absent
func sessionToken(c *gin.Context) string {
	token, err := c.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return ""
	}
	return token
}
