package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"spacesprotocol.org/marketplace-web/internal/i18n"
)

func cookieNamed(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionIDHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetSession(r).ID))
	})
}

func TestSessionCookieRoundTrip(t *testing.T) {
	s := NewSessions("test-signing-key", false, zap.NewNop())
	h := s.Middleware(sessionIDHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	res := rec.Result()
	cookie := cookieNamed(res, sessionCookieName)
	require.NotNil(t, cookie)
	firstID := rec.Body.String()
	require.Len(t, firstID, 26)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, firstID, rec.Body.String())
	require.Nil(t, cookieNamed(rec.Result(), sessionCookieName), "unchanged session is not rewritten")
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	s := NewSessions("test-signing-key", false, zap.NewNop())
	h := s.Middleware(sessionIDHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := cookieNamed(rec.Result(), sessionCookieName)
	require.NotNil(t, cookie)
	firstID := rec.Body.String()

	other := NewSessions("another-key", false, zap.NewNop()).Middleware(sessionIDHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	other.ServeHTTP(rec, req)
	require.NotEqual(t, firstID, rec.Body.String())
	require.NotNil(t, cookieNamed(rec.Result(), sessionCookieName))
}

func TestSessionFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sd := SessionFromContext(req.Context())
	require.NotNil(t, sd)
	require.Empty(t, sd.ID)
}

func csrfChain(s *Sessions) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return s.Middleware(HTMX(s.CSRF(ok)))
}

// primeSession performs a GET and returns the cookies plus the CSRF token.
func primeSession(t *testing.T, h http.Handler) ([]*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	res := rec.Result()
	csrf := cookieNamed(res, csrfCookieName)
	require.NotNil(t, csrf)
	return res.Cookies(), csrf.Value
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	h := csrfChain(NewSessions("k", false, zap.NewNop()))
	cookies, _ := primeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"error":"invalid CSRF token"}`, rec.Body.String())
}

func TestCSRFAcceptsHeaderOrFormToken(t *testing.T) {
	h := csrfChain(NewSessions("k", false, zap.NewNop()))
	cookies, token := primeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-CSRF-Token", token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{CSRFFormField: {token}}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHTMXHelpers(t *testing.T) {
	var sawHTMX bool
	h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHTMX = IsHTMX(r.Context())
		HXPushURL(w, "/?page=2")
		HXDiscard(w)
	}))
	req := httptest.NewRequest(http.MethodGet, "/listings/grid", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, sawHTMX)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "none", rec.Header().Get("HX-Reswap"))
	require.Equal(t, "/?page=2", rec.Header().Get("HX-Push-Url"))

	rec = httptest.NewRecorder()
	HXRedirect(rec, "/space/bitcoin")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/space/bitcoin", rec.Header().Get("HX-Redirect"))
}

func TestLocalePrecedence(t *testing.T) {
	bundle, err := i18n.Load("../../locales", "en", []string{"en", "ja"})
	require.NoError(t, err)
	s := NewSessions("k", false, zap.NewNop())
	h := s.Middleware(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Lang(r)))
	})))

	cases := []struct {
		name   string
		target string
		cookie string
		accept string
		want   string
	}{
		{name: "accept-language", target: "/", accept: "ja-JP,ja;q=0.9", want: "ja"},
		{name: "unsupported falls back", target: "/", accept: "fr", want: "en"},
		{name: "cookie beats header", target: "/", cookie: "ja", accept: "en", want: "ja"},
		{name: "query beats cookie", target: "/?hl=en", cookie: "ja", accept: "ja", want: "en"},
		{name: "unknown query ignored", target: "/?hl=xx", accept: "ja", want: "ja"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: localeCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Body.String())
			require.Equal(t, tc.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestAssetsWithCacheETag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o600))

	h := AssetsWithCache(dir, "/assets", false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age=604800")

	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	dev := AssetsWithCache(dir, "/assets", true)
	rec = httptest.NewRecorder()
	dev.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Empty(t, rec.Header().Get("ETag"))
}

func TestRequestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := chiMid.RequestID(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})))

	req := httptest.NewRequest(http.MethodGet, "/listings/grid", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, zapcore.ErrorLevel, entry.Level)
	fields := entry.ContextMap()
	require.Equal(t, "/listings/grid", fields["path"])
	require.EqualValues(t, http.StatusBadGateway, fields["status"])
	require.Equal(t, "203.0.113.7", fields["remote_ip"])
	require.Equal(t, true, fields["htmx"])
	require.NotEmpty(t, fields["request_id"])
}
