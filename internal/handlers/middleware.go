package handlers

import (
	"net/http"
	"strings"

	"order_engine/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const callerKey = "caller"

// IdentityMiddleware resolves the caller. A bearer token matching
// staffTokenHash marks staff. Everyone else is anonymous and keyed by the
// client IP, which gin only takes from forwarding headers sent by one of the
// engine's trusted proxies.
func IdentityMiddleware(staffTokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if staffTokenHash == "" || bcrypt.CompareHashAndPassword([]byte(staffTokenHash), []byte(token)) != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid staff token"})
				return
			}
			c.Set(callerKey, services.Caller{ID: "staff", IsAnonymous: false})
			c.Next()
			return
		}

		c.Set(callerKey, services.Caller{ID: c.ClientIP(), IsAnonymous: true})
		c.Next()
	}
}

func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if callerFrom(c).IsAnonymous {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) services.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(services.Caller); ok {
			return caller
		}
	}
	return services.Caller{ID: c.ClientIP(), IsAnonymous: true}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
