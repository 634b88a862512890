package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"idadmin/pkg/requestcontext"
)

// ClientMetadata parses the User-Agent header and stores normalized OS and
// browser labels in the context, so audit events can record the client an
// operator used without handlers touching headers.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		os, browser := parseUserAgent(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithClientMetadata(r.Context(), os, browser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseUserAgent(userAgentString string) (string, string) {
	if userAgentString == "" {
		return "", ""
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	return strings.TrimSpace(os), strings.TrimSpace(browser)
}
