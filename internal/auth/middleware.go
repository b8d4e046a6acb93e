package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rolodexhq/rolodex/internal/storage"
)

const contextUserKey = "current_user"

func ExtractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware authenticates the request and stores the resolved user in the
// gin context for downstream handlers.
func Middleware(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "could not validate credentials"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "could not validate credentials"})
				return
			}
			resolver.Logger.Error("current-user resolution failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "message": "internal error"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// SetCurrentUser stores user the way Middleware does. Handler tests use it to
// authenticate requests without a token round trip.
func SetCurrentUser(c *gin.Context, user *storage.User) {
	c.Set(contextUserKey, user)
}

// CurrentUser returns the user stored by Middleware.
func CurrentUser(c *gin.Context) (*storage.User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*storage.User)
	return user, ok
}
