package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-shop/internal/domain/auth"
)

var errUnauthorized = errors.New("unauthorized")

// Authenticator resolves the caller of a request. Two schemes are accepted:
// an "api_key" header whose HMAC-SHA256 hash is looked up in the
// repository, and an "Authorization: Bearer" HS256 JWT whose subject is the
// user id.
type Authenticator struct {
	apikeys   auth.Repository
	pepper    []byte
	jwtSecret []byte
}

// NewAuthenticator creates an Authenticator. An empty jwtSecret disables
// bearer tokens.
func NewAuthenticator(apikeys auth.Repository, pepper, jwtSecret []byte) *Authenticator {
	return &Authenticator{
		apikeys:   apikeys,
		pepper:    pepper,
		jwtSecret: jwtSecret,
	}
}

// Authenticate returns the identity of the request.
func (a *Authenticator) Authenticate(r *http.Request) (auth.Identity, error) {
	if key := r.Header.Get("api_key"); key != "" {
		return a.apiKey(r.Context(), key)
	}
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		scheme, token, ok := strings.Cut(raw, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return auth.Identity{}, errUnauthorized
		}
		return a.bearer(strings.TrimSpace(token))
	}
	return auth.Identity{}, errUnauthorized
}

// apiKey computes the HMAC-SHA256 of the provided key, looks it up and
// compares the stored hash in constant time.
func (a *Authenticator) apiKey(ctx context.Context, key string) (auth.Identity, error) {
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := a.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return auth.Identity{}, errUnauthorized
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return auth.Identity{}, errUnauthorized
	}
	if info.UserID == uuid.Nil {
		return auth.Identity{}, errUnauthorized
	}
	return auth.Identity{UserID: info.UserID, Method: "api_key"}, nil
}

func (a *Authenticator) bearer(token string) (auth.Identity, error) {
	if len(a.jwtSecret) == 0 || token == "" {
		return auth.Identity{}, errUnauthorized
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return auth.Identity{}, errors.Wrap(errUnauthorized, err.Error())
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return auth.Identity{}, errUnauthorized
	}
	return auth.Identity{UserID: userID, Method: "bearer"}, nil
}

// Require rejects unauthenticated requests with 401 and stores the identity
// in the request context otherwise.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			zctx.From(r.Context()).Debug("Authentication failed", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided or are invalid")
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = zctx.With(ctx, zap.Stringer("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the caller set by Require.
func userID(r *http.Request) uuid.UUID {
	id, _ := auth.IdentityFromContext(r.Context())
	return id.UserID
}
