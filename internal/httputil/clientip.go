package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client address for request logs. Forwarding
// headers are consulted first since the API is normally fronted by a
// reverse proxy; entries that do not parse as IPs are ignored.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry in the chain is the originating client.
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if parseable(first) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && parseable(xri) {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func parseable(addr string) bool {
	// Bracketed IPv6 as it appears in forwarding headers.
	trimmed := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	return net.ParseIP(trimmed) != nil
}
