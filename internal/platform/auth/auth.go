// Package auth verifies bearer tokens on the HTTP surface. Verification is
// OIDC-based and optional: without an issuer configured the middleware is a
// pass-through, which keeps local and test deployments unauthenticated.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/stepline-labs/stepline-go/internal/platform/env"
	"github.com/stepline-labs/stepline-go/internal/platform/httpserver"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Identity struct {
	Subject string
	Email   string
}

type ctxKeyIdentity struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

type Config struct {
	IssuerURL string
	ClientID  string
}

func ConfigFromEnv() Config {
	return Config{
		IssuerURL: strings.TrimSpace(env.String("STEPLINE_OIDC_ISSUER_URL", "")),
		ClientID:  strings.TrimSpace(env.String("STEPLINE_OIDC_CLIENT_ID", "")),
	}
}

// Enabled reports whether token verification is configured.
func (c Config) Enabled() bool { return c.IssuerURL != "" }

// Verifier checks bearer tokens against the configured OIDC issuer.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("oidc issuer url is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oidc client id is required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}, nil
}

func (v *Verifier) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := tokenFromHeader(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return Identity{}, err
	}
	return Identity{Subject: token.Subject, Email: claims.Email}, nil
}

// Middleware rejects requests that do not carry a verifiable bearer token.
// A nil Verifier passes every request through unauthenticated.
func Middleware(logger *slog.Logger, verifier *Verifier, next http.Handler) http.Handler {
	if verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := verifier.Authenticate(r.Context(), r)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, ErrUnauthenticated) {
				reason = "unauthenticated"
			}
			logger.Warn("request denied", "reason", reason, "method", r.Method, "path", r.URL.Path, "error", err)
			httpserver.WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"error":      "unauthorized",
				"request_id": r.Header.Get("X-Request-Id"),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func tokenFromHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
