package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercekit/popularity/internal/logger"
)

const (
	// PRIVILEGED_KEY is the gin context key holding the privileged flag
	PRIVILEGED_KEY = "privileged"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []string
}

// DetectPrivileged returns a gin middleware that marks requests carrying a
// valid administrative API key as privileged. Requests without a key (or with
// an invalid one) pass through unprivileged; nothing on this surface requires
// authentication, the flag only feeds the recording guard.
func DetectPrivileged(cfg AuthConfig) gin.HandlerFunc {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key != "" {
			if apiKeyMap[key] {
				c.Set(PRIVILEGED_KEY, true)
			} else {
				logger.Warn("Invalid API key presented",
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
				)
			}
		}
		c.Next()
	}
}

// IsPrivileged reports whether the request was marked privileged
func IsPrivileged(c *gin.Context) bool {
	return c.GetBool(PRIVILEGED_KEY)
}

// extractAPIKey pulls an API key from the Authorization or X-API-Key header
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
