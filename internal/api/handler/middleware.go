package handler

import (
	"errors"
	"fidha/backend/internal/identity"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserKey   = "currentUser"
	ctxTokensKey = "identityTokens"
)

// CurrentUser визначає, хто робить запит.
// A bearer token (header, or ?token= for WebSocket upgrades) must name a known
// user; only the session cookie path creates new users. Every request counts
// as activity for the presence sweep.
func (h *Handler) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			user   *models.User
			tokens identity.TokenStore
			err    error
		)
		if tokenString := bearerToken(c); tokenString != "" {
			// 1. Токен має бути валідним
			anonID, perr := parseJWT(h.JWTSecret, tokenString, h.Directory.Clock.Now)
			if perr != nil {
				log.Printf("WARNING: Rejected token: %v", perr)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			// 2. ...і вказувати на існуючого користувача
			user, err = h.Directory.GetUser(ctx, anonID)
			if errors.Is(err, storage.ErrNotFound) {
				log.Printf("WARNING: Token names unknown user %s", anonID)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			tokens = identity.NewMemoryTokenStore()
			_ = tokens.Set(identity.UserIDKey, anonID)
		} else {
			tokens = identity.NewSessionTokenStore(h.Sessions, c.Request, c.Writer)
			user, err = h.Directory.GetOrCreateCurrentUser(ctx, tokens)
		}
		if err != nil {
			log.Printf("ERROR: Failed to resolve current user: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
			return
		}

		// 3. Оновлюємо присутність; помилка не блокує запит
		if err := h.Directory.Touch(ctx, user); err != nil {
			log.Printf("WARNING: %v", err)
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxTokensKey, tokens)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

func identityTokens(c *gin.Context) identity.TokenStore {
	return c.MustGet(ctxTokensKey).(identity.TokenStore)
}
