package middleware

import (
	"net/http"
	"strings"

	"spacesprotocol.org/marketplace-web/internal/i18n"
)

const localeCookieName = "hl"

// Locale resolves the preferred language from ?hl=, the hl cookie or
// Accept-Language, in that order, and stores it in the session.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(withLocaleFallback(r.Context(), bundle.Fallback()))
			sd := GetSession(r)
			if q := strings.ToLower(r.URL.Query().Get("hl")); q != "" && bundle.IsSupported(q) {
				if sd.Locale != q {
					sd.Locale = q
					sd.MarkDirty()
				}
				http.SetCookie(w, &http.Cookie{Name: localeCookieName, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
			} else if sd.Locale == "" || !bundle.IsSupported(sd.Locale) {
				if c, err := r.Cookie(localeCookieName); err == nil && bundle.IsSupported(c.Value) {
					sd.Locale = strings.ToLower(c.Value)
				} else {
					sd.Locale = bundle.Resolve(r.Header.Get("Accept-Language"))
				}
				sd.MarkDirty()
			}
			w.Header().Set("Content-Language", sd.Locale)
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r)
		})
	}
}

// Lang returns the request language, or the bundle fallback, or "en".
func Lang(r *http.Request) string {
	if sd := GetSession(r); sd.Locale != "" {
		return sd.Locale
	}
	if fb := localeFallback(r.Context()); fb != "" {
		return fb
	}
	return "en"
}
