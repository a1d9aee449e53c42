package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"fieldreg/pkg/requestcontext"
)

// ClientMetadata records the caller's IP and parsed User-Agent so audit
// events can say which device submitted a record.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := ParseClient(ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		ctx := requestcontext.WithClient(r.Context(), info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseClient builds ClientInfo from an IP and a raw User-Agent.
func ParseClient(ip, userAgent string) requestcontext.ClientInfo {
	info := requestcontext.ClientInfo{IP: ip, UserAgent: userAgent}
	if userAgent == "" {
		return info
	}
	ua := useragent.New(userAgent)
	if name, version := ua.Browser(); name != "" {
		info.Browser = strings.TrimSpace(name + " " + version)
	}
	info.OS = ua.OS()
	info.Mobile = ua.Mobile()
	return info
}

// ClientIPFromRequest prefers proxy headers and falls back to RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
