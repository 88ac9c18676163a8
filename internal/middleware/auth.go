package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// legacyHeaders are the per-panel token headers older web clients send
// instead of an Authorization header.
var legacyHeaders = map[auth.Role]string{
	auth.RolePatient: "token",
	auth.RoleDoctor:  "dtoken",
	auth.RoleAdmin:   "atoken",
}

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the token and requires its role to be one of roles.
func (m *AuthMiddleware) Authenticate(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c, roles)
		if raw == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized("not authorized, login again"))
			return
		}

		claims, err := m.tokens.Validate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized("not authorized, login again"))
			return
		}
		if !hasRole(roles, claims.Role) {
			httputil.RespondWithError(c, apperrors.Forbidden("access denied"))
			return
		}

		var id uuid.UUID
		if claims.Role != auth.RoleAdmin {
			id, err = uuid.Parse(claims.Subject)
			if err != nil {
				httputil.RespondWithError(c, apperrors.Unauthorized("not authorized, login again"))
				return
			}
		}

		c.Set(ContextUserID, id)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context, roles []auth.Role) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	for _, role := range roles {
		if tok := c.GetHeader(legacyHeaders[role]); tok != "" {
			return tok
		}
	}
	return ""
}

func hasRole(roles []auth.Role, role auth.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentUser returns the authenticated caller. The id is uuid.Nil for admins.
func CurrentUser(c *gin.Context) (uuid.UUID, auth.Role) {
	id, _ := c.Get(ContextUserID)
	role, _ := c.Get(ContextRole)
	uid, _ := id.(uuid.UUID)
	r, _ := role.(auth.Role)
	return uid, r
}
