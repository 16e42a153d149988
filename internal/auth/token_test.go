package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-api/internal/domain"
)

func testUser(role domain.Role) *domain.User {
	return &domain.User{ID: "user-1", Email: "ada@example.com", Role: role}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Hour, "expense-api")

	raw, issued, err := m.Issue(testUser(domain.RoleAdmin))
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID())

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, issued.TokenID(), claims.TokenID())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiry(), 5*time.Second)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Minute, "expense-api")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := m.Issue(testUser(domain.RoleUser))
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTokenManager_RejectsWrongSecretAndIssuer(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Hour, "expense-api")
	raw, _, err := m.Issue(testUser(domain.RoleUser))
	require.NoError(t, err)

	_, err = NewTokenManager([]byte("other"), time.Hour, "expense-api").Parse(raw)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = NewTokenManager([]byte("secret"), time.Hour, "someone-else").Parse(raw)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager([]byte("secret"), time.Hour, "expense-api")
	claims := &Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "expense-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(nil), ErrUnauthenticated)
	assert.ErrorIs(t, RequireAdmin(&Claims{Role: domain.RoleUser}), ErrForbidden)
	assert.NoError(t, RequireAdmin(&Claims{Role: domain.RoleAdmin}))
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, r.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked, "already-expired tokens are not tracked")

	now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)
}
