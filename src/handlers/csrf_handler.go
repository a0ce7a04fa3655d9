package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/utils"
)

const csrfCookieName = "csrf_token"

type CSRFHandler struct {
	authKey []byte
}

func NewCSRFHandler(authKey []byte) *CSRFHandler {
	return &CSRFHandler{authKey: authKey}
}

// GetCSRFToken issues a fresh token, sets it as a cookie and returns it in
// the body. Clients echo it back in the X-CSRF-Token header on mutating
// requests (double submit).
func (h *CSRFHandler) GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.generateToken()
	if err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)
	json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
}

// CSRFMiddleware rejects mutating requests whose X-CSRF-Token header does
// not match the csrf_token cookie, or whose token was not issued by us.
func (h *CSRFHandler) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		cookie, err := r.Cookie(csrfCookieName)
		if headerToken == "" || err != nil || headerToken != cookie.Value || !h.validateToken(headerToken) {
			logger.L.Warn("CSRF validation failed", "method", r.Method, "path", r.URL.Path)
			utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// generateToken produces base64url(nonce || HMAC(authKey, nonce)) so that
// only tokens we issued pass validation.
func (h *CSRFHandler) generateToken() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, h.authKey)
	mac.Write(nonce)
	return base64.URLEncoding.EncodeToString(append(nonce, mac.Sum(nil)...)), nil
}

func (h *CSRFHandler) validateToken(token string) bool {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) != 32+sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, h.authKey)
	mac.Write(raw[:32])
	return hmac.Equal(raw[32:], mac.Sum(nil))
}
