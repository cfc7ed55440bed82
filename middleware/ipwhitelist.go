package middleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPWhitelist only lets listed clients through. Entries are single
// addresses or CIDR prefixes; malformed ones are logged and skipped. An
// empty list allows everyone.
func IPWhitelist(entries []string, log *zap.Logger) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		if log != nil {
			log.Warn("ignoring malformed allowed ip", zap.String("entry", e))
		}
	}
	return func(c *gin.Context) {
		if len(entries) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
