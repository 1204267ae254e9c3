package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eduquest/questgate/internal/config"
	"github.com/eduquest/questgate/internal/model"
	"github.com/eduquest/questgate/internal/response"
	"github.com/eduquest/questgate/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyUser is the Gin context key for the authenticated user.
	ContextKeyUser = "user"
	// ContextKeyToken is the Gin context key for the raw bearer token.
	ContextKeyToken = "token"
)

// UserFetcher is the slice of the REST backend the authenticator needs.
type UserFetcher interface {
	GetCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Authenticator resolves bearer tokens to users. QuestGate never verifies
// tokens itself — the REST backend is the verifier; a token is valid exactly
// when the backend accepts it. Resolved users are cached in Redis, keyed by
// the token digest, so hot sessions don't hammer the backend on every call.
type Authenticator struct {
	api      UserFetcher
	rdb      *redis.Client
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(api UserFetcher, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		api:      api,
		rdb:      rdb,
		cacheTTL: cfg.UserCacheTTL,
		log:      log.With().Str("component", "authenticator").Logger(),
	}
}

// RequireUser validates the bearer token against the backend (through the
// cache) and stores the user and token on the Gin context.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		user, err := a.resolve(c.Request.Context(), token)
		if err != nil {
			if upstream.IsAuthorization(err) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
				return
			}
			a.log.Error().Err(err).Msg("User lookup failed")
			response.AbortFail(c, http.StatusBadGateway, response.ErrUpstreamFailed)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

// GetUser retrieves the authenticated user from the Gin context.
func GetUser(c *gin.Context) *model.User {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := val.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// GetToken retrieves the raw bearer token from the Gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

// RefreshUser re-fetches the user from the backend and overwrites the cached
// copy. This is the session-refresh operation the orchestrator and bonus
// session trigger after submit/claim; components treat the user object as
// read-only and pick up changes through this re-fetch.
func (a *Authenticator) RefreshUser(ctx context.Context, token string) (*model.User, error) {
	user, err := a.api.GetCurrentUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh user: %w", err)
	}
	a.cache(ctx, token, user)
	return user, nil
}

// resolve looks the token up in the cache and falls back to the backend.
func (a *Authenticator) resolve(ctx context.Context, token string) (*model.User, error) {
	key := config.CacheKey.UserByTokenKey(tokenDigest(token))

	cached, err := a.rdb.Get(ctx, key).Result()
	if err == nil {
		var user model.User
		if jsonErr := json.Unmarshal([]byte(cached), &user); jsonErr == nil {
			return &user, nil
		}
		// Corrupt cache entry — drop it and fall through to the backend.
		a.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		a.log.Warn().Err(err).Msg("User cache read failed")
	}

	user, err := a.api.GetCurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	a.cache(ctx, token, user)
	return user, nil
}

// cache stores the user under the token digest. The TTL is the configured
// cap, shortened to the token's own expiry when that comes sooner — a cached
// user must never outlive the token that resolved it.
func (a *Authenticator) cache(ctx context.Context, token string, user *model.User) {
	ttl := a.cacheTTL
	if exp := tokenExpiry(token); !exp.IsZero() {
		if remaining := time.Until(exp); remaining <= 0 {
			return
		} else if remaining < ttl {
			ttl = remaining
		}
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	key := config.CacheKey.UserByTokenKey(tokenDigest(token))
	if err := a.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		a.log.Warn().Err(err).Msg("User cache write failed")
	}
}

// tokenExpiry reads the exp claim without verifying the signature — the
// backend remains the verifier; the claim only bounds the cache lifetime.
// Returns the zero time for opaque or claimless tokens.
func tokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the ?token query param for WebSocket upgrade requests, which
// cannot send custom headers from browsers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}
