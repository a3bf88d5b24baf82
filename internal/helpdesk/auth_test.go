package helpdesk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "all", r.PostForm.Get("scope"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newStrategy(url string) *OAuthStrategy {
	s := NewOAuthStrategy(OAuthConfig{TokenURL: url, ClientID: "client", ClientSecret: "secret"}, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestAPIKeyStrategy(t *testing.T) {
	session, err := NewAPIKeyStrategy("static").Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SessionAPIKey, session.Kind)
	assert.Equal(t, "static", session.Token)
	assert.True(t, session.ExpiresAt.IsZero())
	assert.True(t, session.usable(fixedNow.Add(1000*time.Hour), time.Minute))

	_, err = NewAPIKeyStrategy("").Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOAuthStrategy_ExpiresIn(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK, `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`)

	session, err := newStrategy(srv.URL).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, SessionOAuth, session.Kind)
	assert.Equal(t, "abc", session.Token)
	assert.Equal(t, fixedNow.Add(time.Hour), session.ExpiresAt)
}

func TestOAuthStrategy_ExpiryFromJWT(t *testing.T) {
	exp := fixedNow.Add(20 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("halo-signing-key"))
	require.NoError(t, err)

	srv, _ := newTokenServer(t, http.StatusOK, `{"access_token":"`+token+`"}`)

	session, err := newStrategy(srv.URL).Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, exp.Equal(session.ExpiresAt))
}

func TestOAuthStrategy_DefaultTTL(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusOK, `{"access_token":"opaque"}`)

	session, err := newStrategy(srv.URL).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(55*time.Minute), session.ExpiresAt)
}

func TestOAuthStrategy_Rejected(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusUnauthorized, `{"error":"invalid_client"}`)

	_, err := newStrategy(srv.URL).Authenticate(context.Background())
	require.ErrorIs(t, err, ErrRejected)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestOAuthStrategy_MalformedResponse(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>login</html>`,
		"missing token": `{"token_type":"Bearer"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := newTokenServer(t, http.StatusOK, body)

			_, err := newStrategy(srv.URL).Authenticate(context.Background())
			require.ErrorIs(t, err, ErrMalformedResponse)

			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, body, authErr.Body)
		})
	}
}

func TestOAuthStrategy_NotConfigured(t *testing.T) {
	_, err := NewOAuthStrategy(OAuthConfig{}, nil).Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSession_Usable(t *testing.T) {
	s := &Session{Kind: SessionOAuth, Token: "t", ExpiresAt: fixedNow.Add(time.Minute)}
	assert.True(t, s.usable(fixedNow, 30*time.Second))
	assert.False(t, s.usable(fixedNow.Add(31*time.Second), 30*time.Second))
	assert.False(t, (*Session)(nil).usable(fixedNow, 0))
}

func TestSession_UsableCapsSkewForShortTokens(t *testing.T) {
	s := &Session{Kind: SessionOAuth, Token: "t", IssuedAt: fixedNow, ExpiresAt: fixedNow.Add(20 * time.Second)}
	assert.True(t, s.usable(fixedNow, 30*time.Second))
	assert.True(t, s.usable(fixedNow.Add(9*time.Second), 30*time.Second))
	assert.False(t, s.usable(fixedNow.Add(10*time.Second), 30*time.Second))
}
