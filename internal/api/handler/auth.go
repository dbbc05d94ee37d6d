package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "fidha-service"
	tokenLifetime = 72 * time.Hour
)

// AnonClaims містить анонімний ID користувача.
type AnonClaims struct {
	AnonID string `json:"anon_id"`
	jwt.RegisteredClaims
}

// generateJWT видає токен для користувача, чинний tokenLifetime від now.
func generateJWT(secret, userID string, now time.Time) (string, error) {
	claims := AnonClaims{
		AnonID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseJWT перевіряє токен і повертає ID користувача. Expiry is judged by now.
func parseJWT(secret, tokenString string, now func() time.Time) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AnonClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*AnonClaims)
	if !ok || !token.Valid || claims.AnonID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.AnonID, nil
}

// GetAnonID позначає користувача онлайн і повертає його разом зі свіжим токеном.
func (h *Handler) GetAnonID(c *gin.Context) {
	user, err := h.Directory.Initialize(c.Request.Context(), identityTokens(c))
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := generateJWT(h.JWTSecret, user.ID, h.Directory.Clock.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": user.ID, "user": user})
}

// GoOffline marks the current user offline.
func (h *Handler) GoOffline(c *gin.Context) {
	if err := h.Directory.Cleanup(c.Request.Context(), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
