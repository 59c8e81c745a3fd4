package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/matrimony-api/internal/contextx"
	apphttpx "github.com/delordemm1/matrimony-api/internal/httpx"
	"github.com/delordemm1/matrimony-api/internal/token"
)

// AccessVerifier validates a raw access token without touching storage.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (*token.AccessClaims, error)
}

// BearerAuth is a router-agnostic Huma middleware that validates the access token
// and injects the account ID and role into the request context.
// Every failure yields the same RFC7807 401 with code ErrUnauthorized; the
// reason is only logged.
func BearerAuth(verifier AccessVerifier, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		writeUnauthorized := func() {
			p := apphttpx.UnauthorizedProblem(ctx.Context(), "")
			ctx.SetHeader("Content-Type", "application/problem+json")
			ctx.SetHeader("WWW-Authenticate", `Bearer realm="api"`)
			ctx.SetStatus(p.GetStatus())
			_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
		}

		// Auth schemes are case-insensitive (RFC 7235).
		scheme, raw, found := strings.Cut(strings.TrimSpace(ctx.Header("Authorization")), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			logger.DebugContext(ctx.Context(), "missing or malformed authorization header")
			writeUnauthorized()
			return
		}

		claims, err := verifier.VerifyAccessToken(strings.TrimSpace(raw))
		if err != nil {
			reason := "invalid"
			if errors.Is(err, token.ErrExpired) {
				reason = "expired"
			}
			logger.InfoContext(ctx.Context(), "access token rejected", "reason", reason, "error", err)
			writeUnauthorized()
			return
		}

		ctx = huma.WithValue(ctx, contextx.AccountIDKey, claims.AccountID())
		ctx = huma.WithValue(ctx, contextx.RoleKey, claims.Role)
		next(ctx)
	}
}
