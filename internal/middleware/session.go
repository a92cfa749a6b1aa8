package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// ContextKeySession is the Gin context key for the live session record.
const ContextKeySession = "session"

// LoadSession resolves the token's session id against Redis.
// A logout in any tab deletes the session, so every other tab is rejected here.
func LoadSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		rec, err := authService.Session(c.Request.Context(), claims)
		if err != nil {
			if errors.Is(err, service.ErrSessionInvalidated) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Set(ContextKeySession, rec)
		c.Next()
	}
}

// GetSession retrieves the session record loaded by LoadSession.
func GetSession(c *gin.Context) *session.Record {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	rec, ok := val.(*session.Record)
	if !ok {
		return nil
	}
	return rec
}
