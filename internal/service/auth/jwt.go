package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
)

// Claims JWT载荷结构，包含标准字段和用户标识
// 仅携带用户身份，入驻状态等易变字段每次请求从数据库读取
type Claims struct {
	UserID string `json:"user_id"` // 用户业务ID（UUID格式）
	Email  string `json:"email"`   // 用户邮箱
	jwt.RegisteredClaims
}

// TokenManager JWT令牌管理器
// 负责签发和校验访问令牌
type TokenManager struct {
	secret []byte        // 签名密钥
	ttl    time.Duration // 令牌有效期
}

// NewTokenManager 创建JWT令牌管理器实例
// 参数:
//   secret - 签名密钥
//   ttlHours - 令牌有效期（小时）
func NewTokenManager(secret string, ttlHours int) *TokenManager {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlHours) * time.Hour,
	}
}

// Generate 为用户签发新的JWT
// 返回令牌字符串和过期时间
func (m *TokenManager) Generate(user *database.User) (string, time.Time, error) {
	expirationTime := time.Now().Add(m.ttl)

	claims := &Claims{
		UserID: user.UserID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "mailagent",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign token: %w", err)
	}

	return tokenString, expirationTime, nil
}

// Validate 校验JWT并返回载荷
// 令牌无效或过期时返回对应的应用错误
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, apperrors.ErrAuthTokenExpiredError
			}
		}
		return nil, apperrors.WrapCode(apperrors.ErrAuthTokenInvalid, err)
	}

	if !token.Valid {
		return nil, apperrors.ErrAuthTokenInvalidError
	}

	return claims, nil
}
