package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/para/internal/config"
)

func TestPolicy_IsPublic(t *testing.T) {
	p, err := NewPolicy([]string{
		"POST /api/users/login",
		"GET /api/routes/**",
		"GET /api/users/*/avatar",
		"/healthz",
	})
	require.NoError(t, err)

	cases := []struct {
		method, path string
		public       bool
	}{
		{http.MethodPost, "/api/users/login", true},
		{http.MethodPost, "/api/users/login/", true},
		{http.MethodGet, "/api/users/login", false},
		{http.MethodGet, "/api/routes", true},
		{http.MethodGet, "/api/routes/R-01", true},
		{http.MethodGet, "/api/routes/R-01/stops", true},
		{http.MethodHead, "/api/routes/R-01", true},
		{http.MethodPost, "/api/routes", false},
		{http.MethodGet, "/api/routesX", false},
		{http.MethodGet, "/api/users/alice/avatar", true},
		{http.MethodGet, "/api/users/alice/bob/avatar", false},
		{http.MethodGet, "/healthz", true},
		{http.MethodDelete, "/healthz", true},
		{http.MethodGet, "/api/routes/../me", false},
		{http.MethodGet, "/api/me", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.public, p.IsPublic(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}
}

func TestPolicy_InvalidPatterns(t *testing.T) {
	_, err := NewPolicy([]string{"GET api/no-slash"})
	require.Error(t, err)
	_, err = NewPolicy([]string{"/a/**/b"})
	require.Error(t, err)
	assert.Panics(t, func() { MustPolicy([]string{"nope"}) })
}

func TestPolicy_PatternsEnumerable(t *testing.T) {
	p := MustPolicy(config.DefaultPublicPaths)
	assert.Equal(t, config.DefaultPublicPaths, p.Patterns())

	assert.True(t, p.IsPublic(http.MethodPost, "/api/users/register"))
	assert.True(t, p.IsPublic(http.MethodGet, "/api/users/check-email"))
	assert.True(t, p.IsPublic(http.MethodGet, "/api/auth/google-callback"))
	assert.False(t, p.IsPublic(http.MethodGet, "/api/users/fetch-username"))
	assert.False(t, p.IsPublic(http.MethodPost, "/api/auth/set-username"))
}

func TestPolicy_Decide(t *testing.T) {
	p := MustPolicy([]string{"GET /public"})
	require.NoError(t, p.RequireRole("/admin/**", "ADMIN"))

	user := &Identity{Subject: "u", Roles: []string{RoleUser}}
	admin := &Identity{Subject: "a", Roles: []string{"ADMIN"}}

	assert.Equal(t, Allow, p.Decide(http.MethodOptions, "/anything", nil))
	assert.Equal(t, Allow, p.Decide(http.MethodGet, "/public", nil))
	assert.Equal(t, Unauthenticated, p.Decide(http.MethodGet, "/private", nil))
	assert.Equal(t, Allow, p.Decide(http.MethodGet, "/private", user))
	assert.Equal(t, Forbidden, p.Decide(http.MethodGet, "/admin/users", user))
	assert.Equal(t, Allow, p.Decide(http.MethodGet, "/admin/users", admin))
	assert.Equal(t, Unauthenticated, p.Decide(http.MethodGet, "/admin/users", nil))

	assert.Equal(t, []string{"/admin/** => ADMIN"}, p.RolePatterns())
	assert.Equal(t, "forbidden", Forbidden.String())
}
