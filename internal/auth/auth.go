// Package auth resolves request credentials to an actor.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/store"
)

// Authenticator maps a credential to an actor or domain.ErrUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (domain.Actor, error)
}

const sessionPrefix = "session:"

// SessionAuthenticator looks opaque bearer tokens up in a KV store where
// session:<token> holds the actor as JSON.
type SessionAuthenticator struct {
	kv  store.KV
	ttl time.Duration
}

func NewSessionAuthenticator(kv store.KV, ttl time.Duration) *SessionAuthenticator {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &SessionAuthenticator{kv: kv, ttl: ttl}
}

func (a *SessionAuthenticator) Authenticate(ctx context.Context, credential string) (domain.Actor, error) {
	token := strings.TrimSpace(credential)
	if token == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing credential", domain.ErrUnauthorized)
	}
	raw, err := a.kv.Get(ctx, sessionPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return domain.Actor{}, fmt.Errorf("%w: unknown or expired session", domain.ErrUnauthorized)
		}
		return domain.Actor{}, fmt.Errorf("session lookup failed: %w", err)
	}
	var actor domain.Actor
	if err := json.Unmarshal([]byte(raw), &actor); err != nil {
		return domain.Actor{}, fmt.Errorf("%w: malformed session", domain.ErrUnauthorized)
	}
	if actor.ID <= 0 || !actor.Role.Valid() {
		return domain.Actor{}, fmt.Errorf("%w: invalid session actor", domain.ErrUnauthorized)
	}
	return actor, nil
}

// Issue stores a new session for actor and returns its token.
func (a *SessionAuthenticator) Issue(ctx context.Context, actor domain.Actor) (string, error) {
	if actor.ID <= 0 || !actor.Role.Valid() {
		return "", fmt.Errorf("%w: invalid actor", domain.ErrValidation)
	}
	b, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := a.kv.Set(ctx, sessionPrefix+token, string(b), a.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Revoke deletes a session.
func (a *SessionAuthenticator) Revoke(ctx context.Context, token string) error {
	return a.kv.Delete(ctx, sessionPrefix+token)
}

// Resolver extracts the actor of an HTTP request. Bearer tokens go through
// the authenticator; with trustHeaders the X-User-Id and X-User-Role headers
// set by a fronting gateway are accepted as well.
type Resolver struct {
	auth         Authenticator
	trustHeaders bool
}

func NewResolver(auth Authenticator, trustHeaders bool) *Resolver {
	return &Resolver{auth: auth, trustHeaders: trustHeaders}
}

func (r *Resolver) Resolve(req *http.Request) (domain.Actor, error) {
	if h := req.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return domain.Actor{}, fmt.Errorf("%w: unsupported authorization scheme", domain.ErrUnauthorized)
		}
		return r.auth.Authenticate(req.Context(), token)
	}
	if r.trustHeaders {
		return fromHeaders(req)
	}
	return domain.Actor{}, fmt.Errorf("%w: missing credential", domain.ErrUnauthorized)
}

func fromHeaders(req *http.Request) (domain.Actor, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(req.Header.Get("X-User-Id")), 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, fmt.Errorf("%w: invalid X-User-Id", domain.ErrUnauthorized)
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Header.Get("X-User-Role"))))
	if !role.Valid() {
		return domain.Actor{}, fmt.Errorf("%w: invalid X-User-Role", domain.ErrUnauthorized)
	}
	return domain.Actor{ID: id, Role: role}, nil
}
