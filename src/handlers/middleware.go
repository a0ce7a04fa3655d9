package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/cryptofolio/backend/src/database"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/model"
	"github.com/username/cryptofolio/backend/src/utils"
)

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// AuthMiddleware validates the bearer token, checks that a live session
// exists for it and stores the user ID in the request context.
func (h *UserHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		subject, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			utils.SendJSONError(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		session, err := model.GetSessionByToken(database.DB, tokenString)
		if err != nil || session.IsBlocked {
			utils.SendJSONError(w, "session not found or revoked", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil || userID != session.UserID {
			logger.L.Warn("Token subject does not match session", "subject", subject, "sessionUserID", session.UserID)
			utils.SendJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next(w, r.WithContext(ctx))
	}
}
