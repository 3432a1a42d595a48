package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokens_SendsCookies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		rc, err := r.Cookie("refreshToken")
		require.NoError(t, err)
		assert.Equal(t, "r1", rc.Value)

		_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "a2", RefreshToken: "r2", AccessExp: 10, RefreshExp: 20})
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	res, err := c.RefreshTokens(context.Background(), "r1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", res.AccessToken)
	assert.Equal(t, "r2", res.RefreshToken)
}

func TestRefreshTokens_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClientWithHTTP(srv.URL+"/", srv.Client()).RefreshTokens(context.Background(), "r", "a")
	require.ErrorContains(t, err, "401")

	_, err = NewClient("").RefreshTokens(context.Background(), "r", "a")
	require.ErrorIs(t, err, ErrNotConfigured)
}
