package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPersistsCookiesAcrossCalls(t *testing.T) {
	var sawCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123", Path: "/"})
			w.Write([]byte("ok"))
		case "/next":
			if c, err := r.Cookie("JSESSIONID"); err == nil {
				sawCookie = c.Value
			}
			w.Write([]byte("ok"))
		}
	}))
	defer server.Close()

	sess, err := New(Config{UserAgent: "test-agent"})
	require.NoError(t, err)

	_, err = sess.Get(context.Background(), server.URL+"/start")
	require.NoError(t, err)

	_, err = sess.Get(context.Background(), server.URL+"/next")
	require.NoError(t, err)

	assert.Equal(t, "abc123", sawCookie)
}

func TestSessionCookieAccessor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "xyz", Path: "/"})
	}))
	defer server.Close()

	sess, err := New(Config{})
	require.NoError(t, err)

	_, err = sess.Get(context.Background(), server.URL)
	require.NoError(t, err)

	value, ok := sess.Cookie(server.URL, "token")
	require.True(t, ok)
	assert.Equal(t, "xyz", value)

	_, ok = sess.Cookie(server.URL, "missing")
	assert.False(t, ok)
}

func TestSessionSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
	}))
	defer server.Close()

	sess, err := New(Config{UserAgent: "Mozilla/5.0 test", AcceptLanguage: "es-AR,es;q=0.9"})
	require.NoError(t, err)

	_, err = sess.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Mozilla/5.0 test", gotUA)
	assert.Equal(t, "es-AR,es;q=0.9", gotLang)
}

func TestSessionPostForm(t *testing.T) {
	var gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotBody = r.PostForm.Get("txtDominio")
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer server.Close()

	sess, err := New(Config{})
	require.NoError(t, err)

	form := url.Values{}
	form.Set("txtDominio", "AB123CD")
	_, err = sess.PostForm(context.Background(), server.URL, form)
	require.NoError(t, err)

	assert.Equal(t, "AB123CD", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestSessionTokens(t *testing.T) {
	sess, err := New(Config{})
	require.NoError(t, err)

	_, ok := sess.Token("__VIEWSTATE")
	assert.False(t, ok)

	sess.SetToken("__VIEWSTATE", "first")
	sess.SetToken("__VIEWSTATE", "second")

	value, ok := sess.Token("__VIEWSTATE")
	require.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestSessionRedirectCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	sess, err := New(Config{MaxRedirects: 3})
	require.NoError(t, err)

	_, err = sess.Get(context.Background(), server.URL)
	assert.Error(t, err)
}
