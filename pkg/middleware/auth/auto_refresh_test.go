package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/eyewear_shop/pkg/authclient"
	"github.com/Skotchmaster/eyewear_shop/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type fakeRefresher struct {
	resp  *authclient.RefreshResponse
	err   error
	calls int
}

func (f *fakeRefresher) RefreshTokens(context.Context, string, string) (*authclient.RefreshResponse, error) {
	f.calls++
	return f.resp, f.err
}

func sign(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccess(sub, role, exp, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, h echo.MiddlewareFunc, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context, error, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	called := false
	err := h(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, c, err, called
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	uid := uuid.NewString()
	mw := NewAutoRefreshMiddleware(secret, nil)
	_, c, err, called := run(t, mw.RequireAuth, &http.Cookie{Name: AccessCookie, Value: sign(t, uid, "user", time.Now().Add(time.Minute))})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, uid, c.Get(CtxUserID))
	assert.Equal(t, "user", c.Get(CtxRole))
}

func TestRequireAuth_MissingAndGarbage(t *testing.T) {
	t.Parallel()

	mw := NewAutoRefreshMiddleware(secret, nil)

	_, _, err, called := run(t, mw.RequireAuth)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))

	_, _, err, called = run(t, mw.RequireAuth, &http.Cookie{Name: AccessCookie, Value: "garbage"})
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestRequireAdmin_ForbidsUsers(t *testing.T) {
	t.Parallel()

	mw := NewAutoRefreshMiddleware(secret, nil)
	_, _, err, called := run(t, mw.RequireAdmin, &http.Cookie{Name: AccessCookie, Value: sign(t, uuid.NewString(), "user", time.Now().Add(time.Minute))})
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, httpCode(t, err))

	_, _, err, called = run(t, mw.RequireAdmin, &http.Cookie{Name: AccessCookie, Value: sign(t, uuid.NewString(), tokens.RoleAdmin, time.Now().Add(time.Minute))})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAuth_ExpiredTokenIsRefreshed(t *testing.T) {
	t.Parallel()

	uid := uuid.NewString()
	fresh := sign(t, uid, "user", time.Now().Add(time.Minute))
	ref := &fakeRefresher{resp: &authclient.RefreshResponse{
		AccessToken:  fresh,
		RefreshToken: "r2",
		AccessExp:    time.Now().Add(time.Minute).Unix(),
		RefreshExp:   time.Now().Add(time.Hour).Unix(),
	}}
	mw := NewAutoRefreshMiddleware(secret, ref)

	rec, c, err, called := run(t, mw.RequireAuth,
		&http.Cookie{Name: AccessCookie, Value: sign(t, uid, "user", time.Now().Add(-time.Minute))},
		&http.Cookie{Name: RefreshCookie, Value: "r1"},
	)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, uid, c.Get(CtxUserID))

	setCookies := rec.Result().Cookies()
	require.Len(t, setCookies, 2)
	assert.Equal(t, fresh, setCookies[0].Value)
	assert.Equal(t, "r2", setCookies[1].Value)
}

func TestRequireAuth_RefreshFailureClearsCookies(t *testing.T) {
	t.Parallel()

	ref := &fakeRefresher{err: errors.New("boom")}
	mw := NewAutoRefreshMiddleware(secret, ref)

	rec, _, err, called := run(t, mw.RequireAuth,
		&http.Cookie{Name: AccessCookie, Value: sign(t, uuid.NewString(), "user", time.Now().Add(-time.Minute))},
		&http.Cookie{Name: RefreshCookie, Value: "r1"},
	)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
	for _, ck := range rec.Result().Cookies() {
		assert.Equal(t, -1, ck.MaxAge)
	}
}
