package gmail

import (
	"context"
	"errors"
	"sync"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ClientFactory Gmail客户端工厂接口
// 为指定用户构建携带其OAuth令牌的Gmail客户端
type ClientFactory interface {
	// ForUser 为指定用户创建Gmail客户端
	// 用户未连接Gmail时返回ErrGmailNotConnected
	ForUser(ctx context.Context, user *database.User) (Client, error)
}

// clientFactory Gmail客户端工厂实现
type clientFactory struct {
	db          *gorm.DB
	oauthConfig *oauth2.Config
}

// NewClientFactory 创建Gmail客户端工厂实例
// 参数:
//   db - 数据库连接，用于读取和回写OAuth令牌
//   oauthConfig - Google OAuth配置
func NewClientFactory(db *gorm.DB, oauthConfig *oauth2.Config) ClientFactory {
	return &clientFactory{
		db:          db,
		oauthConfig: oauthConfig,
	}
}

// ForUser 为指定用户创建Gmail客户端
// 从数据库加载用户的OAuth令牌构建令牌源，刷新后的令牌自动回写数据库
func (f *clientFactory) ForUser(ctx context.Context, user *database.User) (Client, error) {
	var stored database.OAuthToken
	if err := f.db.Where("user_id = ?", user.ID).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGmailNotConnectedError
		}
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}

	src := &persistingTokenSource{
		inner:      f.oauthConfig.TokenSource(ctx, token),
		db:         f.db,
		tokenID:    stored.ID,
		lastAccess: stored.AccessToken,
	}

	return NewClient(ctx, src)
}

// persistingTokenSource 带持久化的OAuth令牌源
// 访问令牌被刷新轮换后回写数据库，保证下次启动仍可使用
type persistingTokenSource struct {
	inner      oauth2.TokenSource
	db         *gorm.DB
	tokenID    uint
	lastAccess string
	mu         sync.Mutex
}

// Token 实现oauth2.TokenSource接口
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.inner.Token()
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrGmailTokenRefresh, err)
	}

	if token.AccessToken != s.lastAccess {
		updates := map[string]interface{}{
			"access_token": token.AccessToken,
			"token_type":   token.TokenType,
			"expiry":       token.Expiry,
		}
		// 部分刷新响应不包含新的刷新令牌，保留原值
		if token.RefreshToken != "" {
			updates["refresh_token"] = token.RefreshToken
		}
		if err := s.db.Model(&database.OAuthToken{}).Where("id = ?", s.tokenID).Updates(updates).Error; err != nil {
			logger.Errorf("[Gmail] 回写刷新后的令牌失败: %v", err)
		} else {
			s.lastAccess = token.AccessToken
		}
	}

	return token, nil
}
