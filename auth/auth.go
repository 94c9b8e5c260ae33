// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

const DefaultTokenTTL = 24 * time.Hour

// Identity is the verified caller behind a request
type Identity struct {
	ProfileID string
	TokenID   string
	ExpiresAt time.Time
}

// Provider issues and verifies HS256 identity tokens
type Provider struct {
	secret []byte
	ttl    time.Duration
	store  store.Store
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

func NewProvider(secret string, ttl time.Duration, s store.Store) *Provider {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Provider{
		secret:  []byte(secret),
		ttl:     ttl,
		store:   s,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeUsername trims a username and checks its length
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)
	if n < models.MinUsernameLen || n > models.MaxUsernameLen {
		return "", apperr.Validation("username must be between %d and %d characters", models.MinUsernameLen, models.MaxUsernameLen)
	}
	return username, nil
}

// SignIn resolves username to a profile, creating it on first use, and
// issues a token for it.
func (p *Provider) SignIn(ctx context.Context, username string) (models.SignInResponse, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return models.SignInResponse{}, err
	}

	profile, isNew, err := p.findOrCreateProfile(ctx, username)
	if err != nil {
		return models.SignInResponse{}, err
	}

	token, expiresAt, err := p.issue(profile.ID)
	if err != nil {
		return models.SignInResponse{}, err
	}

	slog.Info("signed in", "profile_id", profile.ID, "new_profile", isNew)

	return models.SignInResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   profile,
		IsNew:     isNew,
	}, nil
}

func (p *Provider) findOrCreateProfile(ctx context.Context, username string) (models.Profile, bool, error) {
	profile, err := p.store.GetProfileByUsername(ctx, username)
	if err == nil {
		return profile, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return models.Profile{}, false, err
	}

	profile = models.Profile{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: p.now().UTC(),
	}
	err = p.store.CreateProfile(ctx, profile)
	switch {
	case err == nil:
		return profile, true, nil
	case apperr.Is(err, apperr.KindConflict):
		// Lost a race with a concurrent sign-in for the same name
		existing, err := p.store.GetProfileByUsername(ctx, username)
		return existing, false, err
	}
	return models.Profile{}, false, err
}

func (p *Provider) issue(profileID string) (string, time.Time, error) {
	jti, err := GenerateID(16)
	if err != nil {
		return "", time.Time{}, apperr.Internal("issue token", err)
	}

	now := p.now()
	expiresAt := now.Add(p.ttl).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   profileID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, apperr.Internal("sign token", err)
	}
	return token, expiresAt, nil
}

// Verify checks a token's signature, expiry and revocation
func (p *Provider) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return Identity{}, ErrInvalidToken
	}

	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if revoked {
		return Identity{}, ErrTokenRevoked
	}

	return Identity{
		ProfileID: claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the identity's token until it would have expired anyway.
// Signing out twice is a no-op.
func (p *Provider) SignOut(id Identity) {
	if id.TokenID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for jti, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, jti)
		}
	}
	if id.ExpiresAt.After(now) {
		p.revoked[id.TokenID] = id.ExpiresAt
	}
}

// Revoked returns how many tokens are currently on the revocation list
func (p *Provider) Revoked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.revoked)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, if any
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.ProfileID != ""
}

// ProfileIDFromContext returns a pointer to the caller's profile ID, or nil
// for anonymous callers
func ProfileIDFromContext(ctx context.Context) *string {
	id, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	profileID := id.ProfileID
	return &profileID
}
