package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/abaflow/practice-api/internal/handler"
	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/auth"
)

const ContextActor = "actor"

// AuthMiddleware resolves the caller's identity from the bearer token.
// Verified claims are cached briefly so hot clients do not re-verify on
// every request.
type AuthMiddleware struct {
	verifier *auth.Verifier
	claims   *cache.Cache
}

func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		claims:   cache.New(time.Minute, 5*time.Minute),
	}
}

// Authenticate verifies the JWT and sets the resolved actor in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		var claims *auth.Claims
		if cached, ok := m.claims.Get(parts[1]); ok {
			claims = cached.(*auth.Claims)
		} else {
			verified, err := m.verifier.Verify(parts[1])
			if err != nil {
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
				c.Abort()
				return
			}
			claims = verified
			m.claims.Set(parts[1], claims, cache.DefaultExpiration)
		}

		c.Set(ContextActor, model.Actor{
			UserID:   claims.UserID,
			ClinicID: claims.ClinicID,
			Role:     claims.Role,
			IsAdmin:  claims.IsAdmin,
		})
		c.Next()
	}
}

// RequireAdmin guards administrative endpoints.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if !actor.IsAdmin {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the resolved actor; zero value when absent.
func ActorFromContext(c *gin.Context) model.Actor {
	if v, exists := c.Get(ContextActor); exists {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}
