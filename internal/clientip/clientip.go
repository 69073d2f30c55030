// Package clientip resolves the address of the caller a request is made for.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest prefers the first X-Forwarded-For entry, then X-Real-IP, then
// the connection's remote address. Header values that are not IP addresses
// are ignored.
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := normalize(first); ip != "" {
			return ip
		}
	}

	if ip := normalize(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}

	return normalize(host)
}

func normalize(candidate string) string {
	candidate = strings.TrimSpace(candidate)

	ip := net.ParseIP(candidate)
	if ip == nil {
		return ""
	}

	return ip.String()
}
