package middleware

import (
	"context"
)

type ctxKey string

const (
	ctxKeyIsHTMX   ctxKey = "is_htmx"
	ctxKeySession  ctxKey = "session"
	ctxKeyLocaleFB ctxKey = "locale_fallback"
)

// WithHTMX marks request as HTMX
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

func contextWithSession(ctx context.Context, sd *SessionData) context.Context {
	return context.WithValue(ctx, ctxKeySession, sd)
}

// SessionFromContext returns the session stored by Sessions.Middleware, or an
// empty one outside of it. View trackers key on its ID.
func SessionFromContext(ctx context.Context) *SessionData {
	if sd, ok := ctx.Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

func withLocaleFallback(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKeyLocaleFB, lang)
}

func localeFallback(ctx context.Context) string {
	fb, _ := ctx.Value(ctxKeyLocaleFB).(string)
	return fb
}
