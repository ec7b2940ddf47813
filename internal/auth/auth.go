package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"

	"promptpilot/backend/internal/config"
	"promptpilot/backend/internal/repository"
	"promptpilot/backend/pkg/models"
)

// UserIDKey is the request-context key under which RequireAuth stores the
// verified caller's user id.
const UserIDKey = "user_id"

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth verifies inbound bearer credentials against the OpenID Connect
// identity provider. It only verifies tokens; issuing them is the
// provider's business.
type Auth struct {
	apiVerifier *oidc.IDTokenVerifier
	store       repository.RunStore
	logger      Logger
	devMode     bool
	authBypass  bool
}

// New creates a new Auth object using values from the application
// configuration. It establishes a connection to the provider and prepares a
// bearer-token verifier.
func New(ctx context.Context, cfg *config.Config, store repository.RunStore, logger Logger) (*Auth, error) {
	isDev := strings.ToUpper(cfg.Environment) == "DEV"
	shouldBypass := isDev && cfg.DevModeBypass

	var apiVerifier *oidc.IDTokenVerifier

	if !shouldBypass {
		if cfg.Auth.Issuer == "" {
			return nil, errors.New("auth configuration is incomplete")
		}

		provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
		if err != nil {
			return nil, err
		}

		// Access tokens often carry a different audience than the web
		// client id (e.g. "api://default"), so the client-id check is
		// skipped for the bearer verifier.
		apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	}

	return &Auth{
		apiVerifier: apiVerifier,
		store:       store,
		logger:      logger,
		devMode:     isDev,
		authBypass:  shouldBypass,
	}, nil
}

// RequireAuth is middleware that ensures a valid bearer token is present. A
// missing or malformed Authorization header fails immediately with 401; no
// provider call is attempted. On success the caller's user id is injected
// into the request context under UserIDKey.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var subject, email string

		if a.authBypass {
			subject = "dev"
			email = "dev@localhost"
		} else {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			rawToken := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := a.apiVerifier.Verify(r.Context(), rawToken)
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Subject string `json:"sub"`
				Email   string `json:"email"`
			}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				http.Error(w, "token has no subject", http.StatusUnauthorized)
				return
			}
			subject = claims.Subject
			email = claims.Email
		}

		// Lookup or auto-provision the caller
		user, err := a.store.GetUserBySubject(r.Context(), subject)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "failed to resolve user: "+err.Error(), http.StatusInternalServerError)
				return
			}
			user = &models.User{Subject: subject, Email: email}
			if createErr := a.store.CreateUser(r.Context(), user); createErr != nil {
				if a.logger != nil {
					a.logger.Error("failed to provision user", "subject", subject, "error", createErr)
				}
				http.Error(w, "failed to provision user: "+createErr.Error(), http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
