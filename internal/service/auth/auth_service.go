// Package auth 提供认证相关的业务逻辑服务
// 包含Google OAuth授权流程、JWT签发校验和认证状态查询等核心功能
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/weiwangfds/mailagent/config"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// LoginURLResult 登录链接结果
type LoginURLResult struct {
	URL   string `json:"url"`   // Google授权页面地址
	State string `json:"state"` // OAuth状态参数，回调时原样带回
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string         `json:"token"`      // 签发的JWT访问令牌
	ExpiresAt time.Time      `json:"expires_at"` // 令牌过期时间
	User      *database.User `json:"user"`       // 用户信息
	IsNewUser bool           `json:"is_new_user"` // 是否为首次登录创建的用户
}

// StatusResult 认证状态结果
// 所有字段以数据库当前值为准，客户端应以此刷新本地会话状态
type StatusResult struct {
	UserID              string     `json:"user_id"`              // 用户业务ID
	Email               string     `json:"email"`                // 用户邮箱
	Name                string     `json:"name"`                 // 用户显示名称
	Picture             string     `json:"picture"`              // 头像URL
	OnboardingCompleted bool       `json:"onboarding_completed"` // 入驻流程是否完成
	GmailConnected      bool       `json:"gmail_connected"`      // Gmail账户是否已连接
	TelegramLinked      bool       `json:"telegram_linked"`      // Telegram账户是否已关联
	MemberSince         time.Time  `json:"member_since"`         // 用户创建时间
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"` // 邮件代理最后同步时间
}

// AuthService 认证服务接口
// 定义了Google OAuth授权和认证状态的所有业务操作方法
type AuthService interface {
	// LoginURL 生成Google授权页面地址
	// 返回授权地址和防CSRF的state参数
	LoginURL() (*LoginURLResult, error)

	// HandleCallback 处理OAuth授权回调
	// 校验state、交换授权码、获取用户信息并完成登录
	HandleCallback(ctx context.Context, state, code string) (*LoginResult, error)

	// Status 查询用户的认证状态
	// 状态从数据库实时读取，不依赖客户端持有的会话信息
	Status(user *database.User) (*StatusResult, error)

	// OAuthConfig 返回OAuth配置，供Gmail客户端工厂构建令牌源
	OAuthConfig() *oauth2.Config
}

// stateClaims OAuth state参数的JWT载荷
// state参数签名后下发，回调时校验签名和有效期，服务端无需保存状态
type stateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// stateTTL state参数有效期
const stateTTL = 10 * time.Minute

// authService 认证服务实现
type authService struct {
	db          *gorm.DB
	oauthConfig *oauth2.Config
	tokens      *TokenManager
	stateSecret []byte
}

// NewOAuthConfig 根据应用配置构建Google OAuth配置
// 请求gmail.modify权限用于标签管理和邮件分类，userinfo权限用于获取账户资料
func NewOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gmailapi.GmailModifyScope,
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
		},
		Endpoint: google.Endpoint,
	}
}

// NewAuthService 创建认证服务实例
// 参数:
//   db - 数据库连接
//   oauthConfig - Google OAuth配置
//   tokens - JWT令牌管理器
//   stateSecret - state参数签名密钥
// 返回:
//   AuthService - 认证服务接口实例
func NewAuthService(db *gorm.DB, oauthConfig *oauth2.Config, tokens *TokenManager, stateSecret string) AuthService {
	return &authService{
		db:          db,
		oauthConfig: oauthConfig,
		tokens:      tokens,
		stateSecret: []byte(stateSecret),
	}
}

// OAuthConfig 返回OAuth配置
func (s *authService) OAuthConfig() *oauth2.Config {
	return s.oauthConfig
}

// LoginURL 生成Google授权页面地址
// 使用offline访问模式并强制授权页，确保每次都能拿到刷新令牌
func (s *authService) LoginURL() (*LoginURLResult, error) {
	state, err := s.signState()
	if err != nil {
		return nil, err
	}

	url := s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &LoginURLResult{
		URL:   url,
		State: state,
	}, nil
}

// HandleCallback 处理OAuth授权回调
func (s *authService) HandleCallback(ctx context.Context, state, code string) (*LoginResult, error) {
	if err := s.verifyState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("授权码不能为空")
	}

	// 交换授权码
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrAuthCodeExchange, err)
	}

	// 获取Google账户资料
	userinfo, err := s.fetchUserinfo(ctx, token)
	if err != nil {
		return nil, err
	}

	// 创建或更新用户及令牌
	user, isNew, err := s.upsertUser(userinfo, token)
	if err != nil {
		return nil, err
	}

	// 签发访问令牌
	jwtToken, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, "签发访问令牌失败", err)
	}

	logger.Infof("[认证服务] 用户登录成功: %s (新用户: %v)", user.Email, isNew)
	return &LoginResult{
		Token:     jwtToken,
		ExpiresAt: expiresAt,
		User:      user,
		IsNewUser: isNew,
	}, nil
}

// fetchUserinfo 通过userinfo接口获取Google账户资料
func (s *authService) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*oauth2api.Userinfo, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(s.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrAuthUserinfoFailed, err)
	}

	userinfo, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrAuthUserinfoFailed, err)
	}
	if userinfo.Email == "" {
		return nil, apperrors.New(apperrors.ErrAuthUserinfoFailed, "Google账户缺少邮箱信息")
	}
	return userinfo, nil
}

// upsertUser 创建或更新用户记录并保存OAuth令牌
func (s *authService) upsertUser(userinfo *oauth2api.Userinfo, token *oauth2.Token) (*database.User, bool, error) {
	var user database.User
	isNew := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", userinfo.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			// 首次登录，创建用户
			user = database.User{
				UserID:   uuid.New().String(),
				Email:    userinfo.Email,
				Name:     userinfo.Name,
				Picture:  userinfo.Picture,
				GoogleID: userinfo.Id,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			isNew = true
		} else {
			// 老用户更新资料
			updates := map[string]interface{}{
				"name":      userinfo.Name,
				"picture":   userinfo.Picture,
				"google_id": userinfo.Id,
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		// 保存或更新OAuth令牌
		stored := database.OAuthToken{
			UserID:       user.ID,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.TokenType,
			Expiry:       token.Expiry,
		}
		var existing database.OAuthToken
		if err := tx.Where("user_id = ?", user.ID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return tx.Create(&stored).Error
		}

		updates := map[string]interface{}{
			"access_token": token.AccessToken,
			"token_type":   token.TokenType,
			"expiry":       token.Expiry,
		}
		// Google仅在首次授权时返回刷新令牌，空值时保留原有令牌
		if token.RefreshToken != "" {
			updates["refresh_token"] = token.RefreshToken
		}
		return tx.Model(&existing).Updates(updates).Error
	})
	if err != nil {
		return nil, false, apperrors.WrapCode(apperrors.ErrDatabaseTransaction, err)
	}

	return &user, isNew, nil
}

// Status 查询用户的认证状态
func (s *authService) Status(user *database.User) (*StatusResult, error) {
	var tokenCount int64
	if err := s.db.Model(&database.OAuthToken{}).Where("user_id = ?", user.ID).Count(&tokenCount).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	return &StatusResult{
		UserID:              user.UserID,
		Email:               user.Email,
		Name:                user.Name,
		Picture:             user.Picture,
		OnboardingCompleted: user.OnboardingCompleted,
		GmailConnected:      tokenCount > 0,
		TelegramLinked:      user.TelegramLinked(),
		MemberSince:         user.CreatedAt,
		LastSyncedAt:        user.LastSyncedAt,
	}, nil
}

// signState 生成签名的OAuth state参数
func (s *authService) signState() (string, error) {
	claims := &stateClaims{
		Nonce: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "oauth_state",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(stateTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "mailagent",
		},
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("could not sign oauth state: %w", err)
	}
	return state, nil
}

// verifyState 校验OAuth state参数的签名和有效期
func (s *authService) verifyState(state string) error {
	if state == "" {
		return apperrors.ErrAuthStateMismatchError
	}

	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.stateSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject != "oauth_state" {
		return apperrors.ErrAuthStateMismatchError
	}
	return nil
}
