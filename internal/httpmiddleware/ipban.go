package httpmiddleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
)

// IPBan rejects requests from a fixed deny list before any other handling.
func IPBan(banned []string) gin.HandlerFunc {
	denied := make(map[netip.Addr]struct{}, len(banned))
	for _, b := range banned {
		if addr, err := netip.ParseAddr(b); err == nil {
			denied[addr] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(denied) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			if _, ok := denied[addr]; ok {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "you are banned"})
				return
			}
		}
		c.Next()
	}
}
