package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// VerificationRecorder counts guard decisions. observability.Prom satisfies it.
type VerificationRecorder interface {
	TokenVerification(result string)
}

type noopVerificationRecorder struct{}

func (noopVerificationRecorder) TokenVerification(string) {}

type AuthMiddleware struct {
	jwt TokenVerifier
	rec VerificationRecorder
}

func NewAuthMiddleware(jwt TokenVerifier, rec VerificationRecorder) *AuthMiddleware {
	if rec == nil {
		rec = noopVerificationRecorder{}
	}
	return &AuthMiddleware{jwt: jwt, rec: rec}
}

// RequireAuth rejects a request without a bearer token with 401 and a request
// whose token fails verification with 403. On success the claims are stored
// on the gin context and the identity on the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.rec.TokenVerification("missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":      "missing_token",
					"message":   "Access token required",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			result := "invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				result = "expired"
			}
			m.rec.TokenVerification(result)

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "invalid_token",
					"message":   "Invalid or expired token",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		m.rec.TokenVerification("ok")

		// Stash identity on both contexts
		c.Set(CtxClaims, claims)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), claims.Identity()))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Optional helper so handlers don't need to know the magic keys.

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}
