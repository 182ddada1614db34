package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinical-lab-server/internal/config"
	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

const userKey = "user"

// Messages returned by the authentication layer. Everything except a missing
// header shares one message so callers cannot probe why a token was refused.
const (
	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is not valid"
	msgAuthRequired = "Authentication required"
	msgForbidden    = "Insufficient permissions"
)

// AuthMiddleware verifies the bearer token and attaches the active user it
// names to the request context.
func AuthMiddleware(cfg *config.Config, store database.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, msgNoToken)
			c.Abort()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			utils.Unauthorized(c, msgInvalidToken)
			c.Abort()
			return
		}

		userID, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, msgInvalidToken)
			c.Abort()
			return
		}

		var user models.User
		err = store.Get(c.Request.Context(), &user,
			"SELECT * FROM users WHERE id = ? AND is_active = ?", userID, true)
		if errors.Is(err, database.ErrNotFound) {
			utils.Unauthorized(c, msgInvalidToken)
			c.Abort()
			return
		}
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("failed to load token user")
			utils.InternalServerError(c, "Server error")
			c.Abort()
			return
		}

		c.Set(userKey, &user)
		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated user
// holds one of the given roles. It must be chained after AuthMiddleware.
func RequireRole(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.Unauthorized(c, msgAuthRequired)
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if user.Role == allowed {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, msgForbidden)
		c.Abort()
	}
}

// CurrentUser returns the user attached by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
