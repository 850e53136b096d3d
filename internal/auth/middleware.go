package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RoleOperator is the role required for enrollment and audit endpoints.
const RoleOperator = "operator"

// OperatorAuth enforces bearer JWT tokens signed with HS256 and carrying
// the operator role. Tokens with any other role are valid identities but
// not allowed here, so they get a 403 rather than a 401.
func OperatorAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != RoleOperator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator role required"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}
