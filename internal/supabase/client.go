// Package supabase es el cliente del proveedor de identidad remoto (GoTrue + PostgREST).
//
// Todas las llamadas llevan el header apikey y un bearer: el token del usuario
// cuando existe, o la misma api key para signup/login. Los errores de transporte
// nunca salen crudos: se envuelven en ErrRemoteVerificationFailed, ErrRequestFailed
// o ErrProfileNotFound según la operación.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/para/internal/observability/logger"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultFetchAttempts = 3
	DefaultFetchDelay    = time.Second

	// maxBody acota lo que se lee de una respuesta del proveedor.
	maxBody = 1 << 20
)

var (
	ErrRemoteVerificationFailed = errors.New("remote verification failed")
	ErrProfileNotFound          = errors.New("profile not found")
	ErrRequestFailed            = errors.New("identity provider request failed")
	ErrMalformedResponse        = errors.New("malformed identity provider response")
)

// APIError es una respuesta no-2xx del proveedor. Unwrap devuelve ErrRequestFailed.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("supabase %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return ErrRequestFailed }

// ResponseObserver recibe cada respuesta (status 0 si hubo error de transporte).
type ResponseObserver func(op string, status int, elapsed time.Duration)

// Config del cliente.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout por request saliente; 0 usa DefaultTimeout.
	Timeout time.Duration
	// FetchAttempts intentos de FetchProfile; 0 usa DefaultFetchAttempts.
	FetchAttempts int
	// FetchDelay espera constante entre intentos; 0 usa DefaultFetchDelay.
	FetchDelay time.Duration

	HTTPClient *http.Client
	Observe    ResponseObserver
}

// Client es seguro para uso concurrente; no guarda estado por request.
type Client struct {
	base          *url.URL
	apiKey        string
	hc            *http.Client
	fetchAttempts int
	fetchDelay    time.Duration
	observe       ResponseObserver
	log           *zap.Logger
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("supabase: empty base url")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("supabase: empty api key")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FetchAttempts <= 0 {
		cfg.FetchAttempts = DefaultFetchAttempts
	}
	if cfg.FetchDelay <= 0 {
		cfg.FetchDelay = DefaultFetchDelay
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		base:          u,
		apiKey:        cfg.APIKey,
		hc:            hc,
		fetchAttempts: cfg.FetchAttempts,
		fetchDelay:    cfg.FetchDelay,
		observe:       cfg.Observe,
		log:           logger.L().Named("supabase"),
	}, nil
}

// BaseURL devuelve la URL del proyecto.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// profileQuery arma id=eq.<id> (filtro PostgREST).
func profileQuery(id string) url.Values {
	return url.Values{"id": []string{"eq." + id}}
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool { return r.status >= 200 && r.status < 300 }

// do ejecuta la request con apikey + bearer. bearer vacío usa la api key.
func (c *Client) do(ctx context.Context, op, method, target, bearer string, payload any, extra http.Header) (response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("supabase %s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, fmt.Errorf("supabase %s: build request: %w", op, err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.record(op, 0, start)
		return response{}, fmt.Errorf("supabase %s: %w", op, err)
	}
	defer resp.Body.Close()
	c.record(op, resp.StatusCode, start)

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{}, fmt.Errorf("supabase %s: read body: %w", op, err)
	}
	return response{status: resp.StatusCode, body: b}, nil
}

func (c *Client) record(op string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(op, status, time.Since(start))
	}
}

func apiError(op string, r response) *APIError {
	return &APIError{Op: op, Status: r.status, Message: errorMessage(r.body)}
}

// errorMessage extrae el mensaje de los distintos formatos de error de GoTrue/PostgREST.
func errorMessage(body []byte) string {
	var e struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}
