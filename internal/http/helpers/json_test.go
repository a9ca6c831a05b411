package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alice","extra":1}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	require.True(t, ReadJSON(w, r, &v))
	assert.Equal(t, "alice", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	r.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	require.False(t, ReadJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_JSON")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	require.False(t, ReadJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := `{"name":"` + strings.Repeat("a", MaxBodyBytes+10) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	r.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	require.False(t, ReadJSON(w, r, &v))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"missing":       {"", "", false},
		"bearer":        {"Bearer abc.def", "abc.def", true},
		"lowercase":     {"bearer abc", "abc", true},
		"basic":         {"Basic dXNlcjpwYXNz", "", false},
		"empty token":   {"Bearer   ", "", false},
		"no separator":  {"Bearerabc", "", false},
		"extra spacing": {"  Bearer   tok  ", "tok", true},
	}
	for name, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		tok, ok := BearerToken(r)
		assert.Equal(t, tc.ok, ok, name)
		assert.Equal(t, tc.token, tok, name)
	}
}

func TestClientIP_IgnoresForwardedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "10.1.2.3", ClientIP(r))

	r = r.WithContext(WithClientIP(r.Context(), "198.51.100.7"))
	assert.Equal(t, "198.51.100.7", ClientIP(r))
}

func TestIPResolver(t *testing.T) {
	res, err := NewIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	req := func(remote string, xff ...string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		for _, v := range xff {
			r.Header.Add("X-Forwarded-For", v)
		}
		return r
	}

	// peer no confiable: el header no cuenta
	assert.Equal(t, "203.0.113.50", res.ClientIP(req("203.0.113.50:1", "1.2.3.4")))
	// detrás de proxy: primera dirección no confiable desde la derecha
	assert.Equal(t, "203.0.113.9", res.ClientIP(req("10.0.0.1:1", "6.6.6.6, 203.0.113.9, 10.0.0.2")))
	assert.Equal(t, "203.0.113.9", res.ClientIP(req("192.0.2.1:1", "6.6.6.6", "203.0.113.9")))
	// proxy sin header
	assert.Equal(t, "10.0.0.1", res.ClientIP(req("10.0.0.1:1")))

	var none *IPResolver
	assert.Equal(t, "203.0.113.50", none.ClientIP(req("203.0.113.50:1", "1.2.3.4")))

	_, err = NewIPResolver([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = NewIPResolver([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
