package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SESSION_ID_KEY is the gin context key holding the visitor session ID
	SESSION_ID_KEY = "session_id"

	// sessionCookieMaxAge is the lifetime of the session cookie in seconds
	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// Session returns a gin middleware that resolves the visitor session ID.
// The ID comes from the X-Session-ID header or the session cookie; when
// neither is present a new UUID is issued and set as a cookie.
func Session(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			if cookie, err := c.Cookie(cookieName); err == nil {
				sessionID = cookie
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			c.SetCookie(cookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}

		c.Set(SESSION_ID_KEY, sessionID)
		c.Next()
	}
}

// SessionID returns the visitor session ID resolved by Session
func SessionID(c *gin.Context) string {
	return c.GetString(SESSION_ID_KEY)
}
