package fpl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(ts *httptest.Server) *Client {
	c := NewClient("user@example.com", "pass")
	c.client = ts.Client()
	c.host = ts.URL
	return c
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, urlLogin, r.URL.Path+"?"+r.URL.RawQuery)

			user, pass, ok := r.BasicAuth()
			require.True(t, ok, "login should use basic auth")
			assert.Equal(t, "user@example.com", user)
			assert.Equal(t, "pass", pass)

			w.Header().Set("jwttoken", "tok-abc")
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		c := testClient(ts)
		result, err := c.Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, LoginOK, result)
		assert.Equal(t, "tok-abc", c.Token(), "token should be retained for later calls")
	})

	t.Run("InvalidUser", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"messageCode": "INVALIDUSER"})
		}))
		defer ts.Close()

		result, err := testClient(ts).Login(context.Background())
		require.NoError(t, err, "a rejected login is a result, not an error")
		assert.Equal(t, LoginInvalidUser, result)
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"messageCode": "INVALIDPASSWORD"})
		}))
		defer ts.Close()

		result, err := testClient(ts).Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, LoginInvalidPassword, result)
	})

	t.Run("ServerError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer ts.Close()

		result, err := testClient(ts).Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, LoginFailure, result)
	})

	t.Run("UnauthorizedWithoutCode", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		result, err := testClient(ts).Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, LoginFailure, result)
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("SendsToken", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "tok-abc", r.Header.Get("jwttoken"))
			json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
		}))
		defer ts.Close()

		c := testClient(ts)
		c.SetToken("tok-abc")

		var dest map[string]string
		require.NoError(t, c.doGet(context.Background(), "/anything", &dest))
		assert.Equal(t, "yes", dest["ok"])
	})

	t.Run("AuthError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "expired", http.StatusUnauthorized)
		}))
		defer ts.Close()

		err := testClient(ts).doGet(context.Background(), "/anything", nil)
		require.Error(t, err)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr, "401 should surface as AuthError")
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		err := testClient(ts).doGet(context.Background(), "/anything", nil)
		require.Error(t, err)

		var authErr *AuthError
		assert.False(t, errors.As(err, &authErr), "500 is not an auth error")
	})
}

func TestLogout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := testClient(ts)
	c.SetToken("tok-abc")
	c.Logout(context.Background())
	assert.Empty(t, c.Token(), "logout should clear the token")
}
