package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP keys rate limiting of validation attempts. The router's RealIP
// middleware already folds trusted proxy headers into RemoteAddr, so that is
// consulted first; the forwarding headers are only a fallback for handlers
// mounted outside the chain.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		return addr
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
