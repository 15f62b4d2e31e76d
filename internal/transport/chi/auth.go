package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const authChallenge = `Bearer realm="servicesearch"`

// publicPaths answer without a token so probes and scrapers need no credentials.
var publicPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

// keySet holds SHA-256 digests of the accepted API keys. Lookups compare every
// digest in constant time, so response timing does not depend on which key matched.
type keySet [][sha256.Size]byte

func newKeySet(keys []string) keySet {
	var s keySet
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			s = append(s, sha256.Sum256([]byte(k)))
		}
	}
	return s
}

func (s keySet) contains(token string) bool {
	sum := sha256.Sum256([]byte(token))
	match := 0
	for i := range s {
		match |= subtle.ConstantTimeCompare(s[i][:], sum[:])
	}
	return match == 1
}

// BearerAuthMiddleware requires "Authorization: Bearer <key>" on every
// non-public route. With no keys configured it is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := newKeySet(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if msg := authorize(r.Header.Get("Authorization"), keys); msg != "" {
				w.Header().Set("WWW-Authenticate", authChallenge)
				writeError(w, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize returns the client-facing rejection reason, or "" when the header carries a known key.
func authorize(header string, keys keySet) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}
	if token = strings.TrimSpace(token); token == "" || !keys.contains(token) {
		return "invalid api key"
	}
	return ""
}
