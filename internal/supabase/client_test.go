package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "anon-key"

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:       srv.URL,
		APIKey:        testAPIKey,
		Timeout:       2 * time.Second,
		FetchAttempts: 3,
		FetchDelay:    10 * time.Millisecond,
	})
	require.NoError(t, err)
	return c, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	require.Error(t, err)
	_, err = New(Config{BaseURL: "https://x.supabase.co"})
	require.Error(t, err)
	_, err = New(Config{BaseURL: "not a url", APIKey: "k"})
	require.Error(t, err)

	c, err := New(Config{BaseURL: "https://x.supabase.co/", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co", c.BaseURL())
	assert.Equal(t, DefaultFetchAttempts, c.fetchAttempts)
	assert.Equal(t, DefaultFetchDelay, c.fetchDelay)
}

func TestResolveToken_OK(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"u-1","email":"a@x.com","role":"authenticated"}`)
	})

	u, err := c.ResolveToken(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.JSONEq(t, `{"id":"u-1","email":"a@x.com","role":"authenticated"}`, string(u.Raw))
}

func TestResolveToken_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"msg":"invalid JWT"}`)
		},
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"missing id": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"email":"a@x.com"}`)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, h)
			_, err := c.ResolveToken(context.Background(), "tok")
			require.ErrorIs(t, err, ErrRemoteVerificationFailed)
		})
	}
}

func TestResolveToken_EmptyTokenNoCall(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })
	_, err := c.ResolveToken(context.Background(), "  ")
	require.ErrorIs(t, err, ErrRemoteVerificationFailed)
	assert.Zero(t, calls.Load())
}

func TestResolveToken_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }))
	t.Cleanup(func() { close(block); srv.Close() })

	c, err := New(Config{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.ResolveToken(context.Background(), "tok")
	require.ErrorIs(t, err, ErrRemoteVerificationFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveToken_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }))
	t.Cleanup(func() { close(block); srv.Close() })

	c, err := New(Config{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = c.ResolveToken(ctx, "tok")
	require.ErrorIs(t, err, ErrRemoteVerificationFailed)
}

func TestFetchProfile_FoundAfterRetry(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		if calls.Add(1) < 2 {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"u-1","username":"alice","email":"a@x.com"}]`)
	})

	p, err := c.FetchProfile(context.Background(), "u-1", "user-token")
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: "u-1", Username: "alice", Email: "a@x.com"}, p)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchProfile_ExactlyThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		last.Store(time.Now().UnixNano())
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, APIKey: testAPIKey, FetchAttempts: 3, FetchDelay: 200 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.FetchProfile(context.Background(), "u-1", "tok")
	done := time.Now()
	require.ErrorIs(t, err, ErrProfileNotFound)
	assert.EqualValues(t, 3, calls.Load())
	// dos esperas entre tres intentos
	assert.GreaterOrEqual(t, done.Sub(start), 400*time.Millisecond)
	// sin espera después del último intento
	assert.Less(t, done.Sub(time.Unix(0, last.Load())), 100*time.Millisecond)
}

func TestFetchProfile_ErrorsAreRetriedThenNotFound(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FetchProfile(context.Background(), "u-1", "tok")
	require.ErrorIs(t, err, ErrProfileNotFound)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchProfile_CancelStopsBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, APIKey: testAPIKey, FetchAttempts: 3, FetchDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.FetchProfile(ctx, "u-1", "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.NotErrorIs(t, err, ErrProfileNotFound)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchProfile_RowWithoutIDFailsFast(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[{"username":"alice"}]`)
	})
	_, err := c.FetchProfile(context.Background(), "u-1", "tok")
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCreateProfile(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusNoContent, http.StatusConflict} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
			assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
			var p Profile
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			assert.Equal(t, Profile{ID: "u-1", Username: "alice", Email: "a@x.com"}, p)
			w.WriteHeader(status)
		})
		err := c.CreateProfile(context.Background(), Profile{ID: "u-1", Username: "alice", Email: "a@x.com"}, "tok")
		assert.NoError(t, err, "status %d", status)
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"new row violates row-level security policy"}`)
	})
	err := c.CreateProfile(context.Background(), Profile{ID: "u-1", Username: "alice"}, "tok")
	require.ErrorIs(t, err, ErrRequestFailed)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Message, "row-level security")
}

func TestUpdateProfile(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"username": "bob"}, body)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.UpdateProfile(context.Background(), Profile{ID: "u-1", Username: "bob"}, "tok"))
	require.NoError(t, c.UpdateProfile(context.Background(), Profile{ID: "u-1"}, "tok"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestDeleteProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteProfile(context.Background(), "u-1", "tok"))
	require.ErrorIs(t, c.DeleteProfile(context.Background(), "", "tok"), ErrRequestFailed)
}

func TestSignUp(t *testing.T) {
	t.Run("with session", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
			var in credentialsPayload
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "a@x.com", in.Email)
			_, _ = io.WriteString(w, `{"access_token":"at","token_type":"bearer","user":{"id":"u-1","email":"a@x.com"}}`)
		})
		res, err := c.SignUp(context.Background(), "a@x.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Equal(t, "u-1", res.User.ID)
		require.NotNil(t, res.Session)
		assert.Equal(t, "at", res.Session.AccessToken)
	})

	t.Run("pending confirmation", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"id":"u-2","email":"b@x.com","confirmation_sent_at":"2024-01-01T00:00:00Z"}`)
		})
		res, err := c.SignUp(context.Background(), "b@x.com", "Passw0rd!")
		require.NoError(t, err)
		assert.Equal(t, "u-2", res.User.ID)
		assert.Nil(t, res.Session)
	})

	t.Run("rejected", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"code":422,"msg":"User already registered"}`)
		})
		_, err := c.SignUp(context.Background(), "a@x.com", "Passw0rd!")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "User already registered", apiErr.Message)
	})

	t.Run("no user id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"email":"a@x.com"}`)
		})
		_, err := c.SignUp(context.Background(), "a@x.com", "Passw0rd!")
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestPasswordLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var in credentialsPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Password != "Passw0rd!" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"at","expires_in":3600,"user":{"id":"u-1","email":"a@x.com"}}`)
	})

	s, err := c.PasswordLogin(context.Background(), "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "u-1", s.User.ID)
	assert.NotEmpty(t, s.Raw)

	_, err = c.PasswordLogin(context.Background(), "a@x.com", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestPasswordLogin_MissingAccessToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"id":"u-1"}}`)
	})
	_, err := c.PasswordLogin(context.Background(), "a@x.com", "Passw0rd!")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestObserverSeesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	var ops []string
	c, err := New(Config{BaseURL: srv.URL, APIKey: testAPIKey, Observe: func(op string, status int, _ time.Duration) {
		ops = append(ops, op)
		assert.Equal(t, http.StatusUnauthorized, status)
	}})
	require.NoError(t, err)

	_, _ = c.ResolveToken(context.Background(), "tok")
	assert.Equal(t, []string{"resolve_token"}, ops)
}
