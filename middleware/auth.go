package middleware

import (
	"context"
	"net/http"
	"strings"

	"DineLine/utils"

	"firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware admits requests carrying a valid staff ID token and stores
// the user id under "userId".
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		idToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(idToken) == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(idToken))
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set("userId", token.UID)
		c.Next()
	}
}
