package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/username/fundrecon/backend/src/logger"
)

const csrfCookieName = "_csrf"

// GetCSRFToken issues a fresh double-submit token: the value lands both in an
// HttpOnly cookie and in the response so the frontend can echo it back in the
// X-CSRF-Token header.
func GetCSRFToken(authKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := generateCSRFToken(authKey)
		if err != nil {
			logger.L.Error("Failed to generate CSRF token", "error", err)
			sendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   false, // behind TLS-terminating proxy in production
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)
		json.NewEncoder(w).Encode(map[string]string{
			"csrfToken": token,
		})
	}
}

// CSRFMiddleware enforces the double-submit check on every mutating request:
// the header token must match the cookie token and carry a valid signature.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || headerToken == "" {
				logger.L.Warn("CSRF check failed: token missing", "path", r.URL.Path, "method", r.Method)
				sendJSONError(w, "CSRF token missing", http.StatusForbidden)
				return
			}
			if !hmac.Equal([]byte(headerToken), []byte(cookie.Value)) || !validCSRFToken(authKey, headerToken) {
				logger.L.Warn("CSRF check failed: token mismatch", "path", r.URL.Path, "method", r.Method)
				sendJSONError(w, "CSRF token invalid", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// generateCSRFToken builds "nonce.signature" with an HMAC over the nonce, so
// a token can be checked without server-side storage.
func generateCSRFToken(authKey []byte) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(nonce)
	return base64.RawURLEncoding.EncodeToString(nonce) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func validCSRFToken(authKey []byte, token string) bool {
	dot := -1
	for i := range token {
		if token[i] == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot == len(token)-1 {
		return false
	}
	nonce, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(nonce)
	return hmac.Equal(sig, mac.Sum(nil))
}
