package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tensosense-server-go/internal/domain/auth/model"
)

// IdentityKey is the gin context key holding the verified model.Identity.
const IdentityKey = "identity"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
func BearerAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			AbortWithError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := verifier.Verify(strings.TrimSpace(header[7:]))
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}
