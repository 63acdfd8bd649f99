package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/fundrecon/backend/src/logger"
)

var csrfTestKey = []byte("0123456789abcdef0123456789abcdef")

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	logger.InitLogger("error")

	token, err := generateCSRFToken(csrfTestKey)
	require.NoError(t, err)
	assert.True(t, validCSRFToken(csrfTestKey, token))
	assert.False(t, validCSRFToken([]byte("another-32-byte-key-entirely!!!!"), token))
	assert.False(t, validCSRFToken(csrfTestKey, "garbage"))
	assert.False(t, validCSRFToken(csrfTestKey, token+"x"))
}

func TestCSRFMiddlewareAllowsSafeMethods(t *testing.T) {
	logger.InitLogger("error")
	next, called := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/recon/mcx/results", nil)
	CSRFMiddleware(csrfTestKey)(next).ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFMiddlewareRejectsMissingToken(t *testing.T) {
	logger.InitLogger("error")
	next, called := okHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recon/mcx/process", nil)
	CSRFMiddleware(csrfTestKey)(next).ServeHTTP(rec, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFMiddlewareAcceptsMatchingPair(t *testing.T) {
	logger.InitLogger("error")
	next, called := okHandler()

	token, err := generateCSRFToken(csrfTestKey)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recon/mcx/process", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	CSRFMiddleware(csrfTestKey)(next).ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFMiddlewareRejectsMismatchedPair(t *testing.T) {
	logger.InitLogger("error")
	next, called := okHandler()

	headerToken, err := generateCSRFToken(csrfTestKey)
	require.NoError(t, err)
	cookieToken, err := generateCSRFToken(csrfTestKey)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recon/mcx/process", nil)
	req.Header.Set("X-CSRF-Token", headerToken)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookieToken})
	CSRFMiddleware(csrfTestKey)(next).ServeHTTP(rec, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
