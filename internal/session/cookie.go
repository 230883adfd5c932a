package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/patient-feedback-server/internal/domain"
)

// Cookies issues and reads the session-id cookie. The cookie carries
// only an opaque uuid; all session state lives server-side.
type Cookies struct {
	cfg domain.SessionConfig
}

// NewCookies creates a cookie helper from session configuration.
func NewCookies(cfg domain.SessionConfig) *Cookies {
	return &Cookies{cfg: cfg}
}

// SessionID returns the client's session id, issuing a fresh cookie
// when none is present. issued reports whether a new id was created.
func (c *Cookies) SessionID(ctx *gin.Context) (id string, issued bool) {
	if v, err := ctx.Cookie(c.cfg.CookieName); err == nil && v != "" {
		return v, false
	}

	id = uuid.New().String()
	maxAge := int(c.cfg.TTL.Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.cfg.CookieName, id, maxAge, "/", "", c.cfg.Secure, true)
	return id, true
}
