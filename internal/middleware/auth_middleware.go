package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/response"
	authservice "github.com/weiwangfds/mailagent/internal/service/auth"
	"gorm.io/gorm"
)

// 上下文键常量
const (
	ContextUserKey = "current_user" // 当前用户对象
)

// AuthMiddleware 认证中间件
// 校验Bearer令牌并加载当前用户
type AuthMiddleware struct {
	tokens *authservice.TokenManager
	db     *gorm.DB
}

// NewAuthMiddleware 创建认证中间件实例
func NewAuthMiddleware(tokens *authservice.TokenManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		db:     db,
	}
}

// RequireAuth 认证检查中间件
// 校验Authorization头中的Bearer令牌，并从数据库加载最新的用户状态
// 入驻状态等字段始终以数据库为准，避免客户端持有过期的会话状态
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		// 每次请求重新读取用户行，保证状态新鲜
		var user database.User
		if err := m.db.Where("user_id = ?", claims.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(c, apperrors.ErrUserNotFoundError)
			} else {
				response.Error(c, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err))
			}
			c.Abort()
			return
		}

		c.Set(ContextUserKey, &user)
		c.Next()
	}
}

// CurrentUser 从gin上下文中获取当前用户
// 必须在RequireAuth之后调用
func CurrentUser(c *gin.Context) *database.User {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(*database.User); ok {
			return user
		}
	}
	return nil
}
