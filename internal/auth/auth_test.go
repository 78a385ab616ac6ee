package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/store"
)

func TestSessionAuthenticator_IssueAndAuthenticate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewSessionAuthenticator(store.NewRedisKV(client), time.Hour)
	ctx := context.Background()

	token, err := a.Issue(ctx, domain.Actor{ID: 42, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, token, 64)

	actor, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 42, Role: domain.RoleAdmin}, actor)

	require.NoError(t, a.Revoke(ctx, token))
	_, err = a.Authenticate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSessionAuthenticator_Rejects(t *testing.T) {
	kv := store.NewMemoryKV()
	a := NewSessionAuthenticator(kv, time.Hour)
	ctx := context.Background()

	_, err := a.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, kv.Set(ctx, "session:bad", "not json", 0))
	_, err = a.Authenticate(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, kv.Set(ctx, "session:guest", `{"actor_id":5,"role":"guest"}`, 0))
	_, err = a.Authenticate(ctx, "guest")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.Issue(ctx, domain.Actor{ID: 0, Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolver(t *testing.T) {
	kv := store.NewMemoryKV()
	a := NewSessionAuthenticator(kv, time.Hour)
	token, err := a.Issue(context.Background(), domain.Actor{ID: 7, Role: domain.RoleEmployee})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	actor, err := NewResolver(a, false).Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), actor.ID)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, err = NewResolver(a, true).Resolve(req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-Id", "9")
	req.Header.Set("X-User-Role", "Admin")
	_, err = NewResolver(a, false).Resolve(req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	actor, err = NewResolver(a, true).Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 9, Role: domain.RoleAdmin}, actor)
}
