package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService("test-secret")
	require.NoError(t, err)
	return s
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("  ")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueAndVerify(t *testing.T) {
	s := newTokenService(t)

	token, issued, err := s.Issue("user-1")
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt, time.Minute)
}

func TestVerify_Expired(t *testing.T) {
	s := newTokenService(t)
	s.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }

	token, _, err := s.Issue("user-1")
	require.NoError(t, err)

	_, err = newTokenService(t).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, _, err := newTokenService(t).Issue("user-1")
	require.NoError(t, err)

	other, err := NewTokenService("another-secret")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTokenService(t).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := newTokenService(t).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSetTokenCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetTokenCookie(c, "abc", true)

	header := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(header, "jwt=abc"))
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "Secure")
	assert.Contains(t, header, "SameSite=Strict")
	assert.Contains(t, header, "Max-Age=2592000")
}

func TestClearTokenCookie_NotSecureInDevelopment(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ClearTokenCookie(c, false)

	header := w.Header().Get("Set-Cookie")
	assert.Contains(t, header, "Max-Age=0")
	assert.NotContains(t, header, "Secure")
}

func TestTokenFromRequest(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"}) }, "from-cookie"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer from-header") }, "from-header"},
		{"cookie wins", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		}, "from-cookie"},
		{"none", func(r *http.Request) {}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(c.Request)
			assert.Equal(t, tc.want, TokenFromRequest(c))
		})
	}
}

func TestDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDenylist(rdb)
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "tok-1", time.Now().Add(time.Hour)))

	revoked, err := d.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = d.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylist_IgnoresExpired(t *testing.T) {
	mr := miniredis.RunT(t)
	d := NewDenylist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, d.Revoke(context.Background(), "tok-1", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(denylistPrefix+"tok-1"))
}
