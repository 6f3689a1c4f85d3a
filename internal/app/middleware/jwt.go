package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleeahmmed/hrm/internal/domain/services"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(svc services.InterfaceJWTService) {
	jwtService = svc
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

func abort(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
	c.Abort()
}

// authenticate 校验令牌并检查角色，roles 为空时任何角色都可以
func authenticate(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if jwtService == nil {
			abort(c, http.StatusInternalServerError, "auth middleware not initialized")
			return
		}

		claims, err := jwtService.ExtractClaims(extractToken(authHeader))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if claims.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				abort(c, http.StatusForbidden, "Insufficient permissions: requires "+strings.Join(roles, " or ")+" role")
				return
			}
		}

		// 存储claims到上下文
		c.Set("adminID", claims.AdminID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Set("claims", claims)
		c.Next()
	}
}

// AuthenticateSystemAdmin 验证系统管理员权限
func AuthenticateSystemAdmin() gin.HandlerFunc {
	return authenticate("admin")
}

// AuthenticateOperator 管理员和操作员都可以访问
func AuthenticateOperator() gin.HandlerFunc {
	return authenticate("admin", "operator")
}
