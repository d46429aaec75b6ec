package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultCSRFCookie = "codedeck-csrf-token"
	csrfHeaderName    = "X-CSRF-Token"
)

// CSRFMiddleware enforces double-submit protection: state-changing requests
// must echo the token cookie back in the X-CSRF-Token header. Safe methods
// pass through, but every response carries the cookie so a browser client
// has a token in hand before its first POST. cookieName selects the cookie;
// empty means defaultCSRFCookie.
func CSRFMiddleware(cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = defaultCSRFCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(cookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				token = newCSRFToken()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					SameSite: http.SameSiteStrictMode,
				})
			}

			if mutatesState(r.Method) && !csrfTokenMatches(r.Header.Get(csrfHeaderName), token) {
				writeError(w, http.StatusForbidden, "invalid CSRF token", "csrf header mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func mutatesState(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func csrfTokenMatches(header, cookie string) bool {
	if header == "" || cookie == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) == 1
}

func newCSRFToken() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])
}
