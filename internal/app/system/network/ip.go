// Package network extracts client details from inbound requests.
package network

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from the request.
// X-Forwarded-For (first hop) wins, then X-Real-IP, then RemoteAddr
// without its port.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// GetLocation returns the coarse client location supplied by an edge proxy,
// or "" when none is present.
func GetLocation(r *http.Request) string {
	for _, h := range []string{"CF-IPCountry", "X-Client-Location", "X-Country-Code"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" && v != "XX" {
			return v
		}
	}
	return ""
}
