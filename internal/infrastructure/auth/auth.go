package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/utils/platformerrors"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Validator validates bearer JWTs against a JWKS.
type Validator struct {
	enabled  bool
	issuer   string
	audience string
	keyFunc  jwt.Keyfunc
	log      zerolog.Logger
}

// NewValidator fetches the JWKS when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{log: log}, nil
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	})
	if err != nil {
		return nil, err
	}

	return &Validator{
		enabled:  true,
		issuer:   cfg.AuthIssuer,
		audience: cfg.AuthAudience,
		keyFunc:  jwks.Keyfunc,
		log:      log,
	}, nil
}

// Enabled reports whether tokens are checked.
func (v *Validator) Enabled() bool {
	return v != nil && v.enabled
}

// Validate parses and verifies a raw token and returns its subject.
func (v *Validator) Validate(raw string) (string, error) {
	if !v.Enabled() {
		return "", nil
	}
	token, err := jwt.Parse(raw, v.keyFunc,
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil || !token.Valid {
		v.log.Debug().Err(err).Msg("jwt validation failed")
		return "", ErrInvalidToken
	}
	subject, _ := token.Claims.GetSubject()
	return subject, nil
}

// Middleware enforces bearer auth when enabled. Websocket clients that cannot
// set headers may pass the token as the access_token query parameter.
func (v *Validator) Middleware() gin.HandlerFunc {
	if !v.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("access_token"))
		}
		if raw == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			return
		}

		subject, err := v.Validate(raw)
		if err != nil {
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}
		c.Set("user_id", subject)
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
