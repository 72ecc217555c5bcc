package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

const tokenInfoBodyLimit = 1 << 20

// TokenValidator resolves a bearer token into the authenticated principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.Principal, error)
}

// GoogleTokenValidator verifies access tokens against Google's tokeninfo endpoint.
type GoogleTokenValidator struct {
	endpoint string
	audience string
	client   *http.Client
	metrics  *MetricsService
	now      Clock
	logger   *zap.Logger
}

// NewGoogleTokenValidator constructs a validator. An empty audience skips the aud check.
func NewGoogleTokenValidator(endpoint, audience string, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *GoogleTokenValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleTokenValidator{
		endpoint: endpoint,
		audience: audience,
		client:   &http.Client{Timeout: timeout},
		metrics:  metrics,
		now:      defaultClock,
		logger:   logger,
	}
}

// Validate calls tokeninfo and maps the response to a principal.
func (v *GoogleTokenValidator) Validate(ctx context.Context, token string) (*models.Principal, error) {
	principal, err := v.validate(ctx, token)
	if err != nil {
		v.metrics.RecordTokenValidation("google", "rejected")
		return nil, err
	}
	v.metrics.RecordTokenValidation("google", "accepted")
	return principal, nil
}

func (v *GoogleTokenValidator) validate(ctx context.Context, token string) (*models.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token")
	}

	endpoint, err := url.Parse(v.endpoint)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid tokeninfo url")
	}
	query := endpoint.Query()
	query.Set("access_token", token)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build tokeninfo request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("tokeninfo request failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unable to verify token")
	}
	defer resp.Body.Close()

	var info models.GoogleTokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, tokenInfoBodyLimit)).Decode(&info); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unreadable tokeninfo response")
	}
	if resp.StatusCode != http.StatusOK || info.Error != "" {
		v.logger.Debug("token rejected by google", zap.Int("status", resp.StatusCode), zap.String("reason", info.ErrorDesc))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired Google token")
	}
	if info.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid Google token structure")
	}
	if v.audience != "" && info.Audience != v.audience {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token issued for another client")
	}

	return &models.Principal{
		Subject:   info.Subject,
		Email:     info.Email,
		Name:      info.Name,
		ExpiresAt: info.ExpiresAt(v.now()),
	}, nil
}

// JWTTokenValidator verifies locally signed HS256 tokens. Used for development and tests.
type JWTTokenValidator struct {
	secret  []byte
	issuer  string
	metrics *MetricsService
}

// NewJWTTokenValidator constructs a validator. An empty issuer skips the iss check.
func NewJWTTokenValidator(secret, issuer string, metrics *MetricsService) *JWTTokenValidator {
	return &JWTTokenValidator{secret: []byte(secret), issuer: issuer, metrics: metrics}
}

// Validate parses and verifies the token signature and registered claims.
func (v *JWTTokenValidator) Validate(_ context.Context, token string) (*models.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &models.StudentClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		v.metrics.RecordTokenValidation("jwt", "rejected")
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "token expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if claims.Subject == "" {
		v.metrics.RecordTokenValidation("jwt", "rejected")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}

	principal := &models.Principal{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	v.metrics.RecordTokenValidation("jwt", "accepted")
	return principal, nil
}

// IssueToken signs a token for the student. Used by the dev token script and tests.
func (v *JWTTokenValidator) IssueToken(principal models.Principal, ttl time.Duration, now time.Time) (string, error) {
	claims := models.StudentClaims{
		Email: principal.Email,
		Name:  principal.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// CachedTokenValidator memoises successful validations keyed by a token digest. An entry never
// outlives the token it was derived from.
type CachedTokenValidator struct {
	next  TokenValidator
	cache *CacheService
	ttl   time.Duration
	now   Clock
}

// NewCachedTokenValidator wraps next with a cache. A disabled cache passes straight through.
func NewCachedTokenValidator(next TokenValidator, cache *CacheService, ttl time.Duration) *CachedTokenValidator {
	return &CachedTokenValidator{next: next, cache: cache, ttl: ttl, now: defaultClock}
}

// Validate consults the cache before delegating.
func (v *CachedTokenValidator) Validate(ctx context.Context, token string) (*models.Principal, error) {
	key := tokenCacheKey(token)
	var cached models.Principal
	if v.cache.Get(ctx, key, &cached) && !cached.ExpiredAt(v.now()) {
		return &cached, nil
	}

	principal, err := v.next.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if ttl, ok := v.entryTTL(principal); ok {
		v.cache.Set(ctx, key, principal, ttl)
	}
	return principal, nil
}

// entryTTL caps the configured TTL at the token's remaining lifetime. ok is false when the
// token has no lifetime left.
func (v *CachedTokenValidator) entryTTL(principal *models.Principal) (time.Duration, bool) {
	if principal.ExpiresAt.IsZero() {
		return v.ttl, true
	}
	remaining := principal.ExpiresAt.Sub(v.now())
	if remaining <= 0 {
		return 0, false
	}
	if v.ttl > 0 && v.ttl < remaining {
		return v.ttl, true
	}
	return remaining, true
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}
