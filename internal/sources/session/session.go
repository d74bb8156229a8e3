// Package session holds the per-invocation transient state of one portal
// choreography: a cookie jar, extracted hidden tokens, and any negotiated
// session identifier. A Session is built fresh per adapter invocation and
// discarded afterwards; it is never shared across lookups.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Config is the immutable HTTP client configuration shared by all adapters.
// Several portals gate on browser-like headers, so UserAgent and
// AcceptLanguage are always sent.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxRedirects   int

	// Transport overrides the default transport; tests use it to serve
	// fixtures and count requests.
	Transport http.RoundTripper
}

// Response is the portion of an HTTP exchange adapters work with
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Session is the per-invocation state container
type Session struct {
	client *http.Client
	cfg    Config

	// Tokens holds hidden fields and session-scoped values extracted along
	// the choreography (name -> value)
	Tokens map[string]string

	// ID holds a negotiated session/instance identifier when the portal
	// hands one out in the page body rather than a cookie
	ID string
}

// New creates a fresh session with its own cookie jar
func New(cfg Config) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 20
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	if cfg.Transport != nil {
		client.Transport = cfg.Transport
	}

	return &Session{
		client: client,
		cfg:    cfg,
		Tokens: make(map[string]string),
	}, nil
}

// Get issues a GET request within the session
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

// PostForm issues a form-encoded POST request within the session
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// PostJSON issues a JSON POST request within the session
func (s *Session) PostJSON(ctx context.Context, rawURL string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	return s.do(req)
}

// Cookie returns the value of a cookie currently stored for rawURL
func (s *Session) Cookie(rawURL, name string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// SetToken stores an extracted token under name, replacing any prior value
func (s *Session) SetToken(name, value string) {
	s.Tokens[name] = value
}

// Token returns a previously extracted token
func (s *Session) Token(name string) (string, bool) {
	v, ok := s.Tokens[name]
	return v, ok
}

func (s *Session) do(req *http.Request) (*Response, error) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if s.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", s.cfg.AcceptLanguage)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   string(body),
	}, nil
}
