package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/response"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/service"
)

// CheckSingleConnection validates the JWT's JTI against the registered
// connection in Redis. A stale JTI means the candidate rejoined from another
// device and this token was superseded.
func CheckSingleConnection(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateConnection(c.Request.Context(), claims.CandidateID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
