// Package database 定义了用户与认证相关的数据库模型
// 包含用户、OAuth令牌和Telegram关联码等核心数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 通过Google OAuth登录创建，记录Gmail连接、Telegram关联和入驻流程状态
// 入驻完成标志一旦置为true不会被系统自动回退
type User struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                        // 主键ID，自增
	UserID              string         `gorm:"not null;uniqueIndex;size:36" json:"user_id"` // 业务ID（UUID格式）
	Email               string         `gorm:"not null;uniqueIndex;size:255" json:"email"`  // Gmail邮箱地址，唯一
	Name                string         `gorm:"size:100" json:"name"`                        // 用户显示名称
	Picture             string         `gorm:"size:500" json:"picture"`                     // 头像URL
	GoogleID            string         `gorm:"size:64;index" json:"-"`                      // Google账户ID，API响应时不返回
	OnboardingCompleted bool           `gorm:"default:false" json:"onboarding_completed"`   // 入驻流程是否完成
	TelegramUserID      *int64         `gorm:"index" json:"telegram_user_id,omitempty"`     // Telegram用户ID，未关联时为空
	TelegramChatID      *int64         `json:"telegram_chat_id,omitempty"`                  // Telegram会话ID，用于推送通知
	TelegramLinkedAt    *time.Time     `json:"telegram_linked_at,omitempty"`                // Telegram关联时间
	LastSyncedAt        *time.Time     `json:"last_synced_at,omitempty"`                    // 邮件代理最后一次同步时间
	CreatedAt           time.Time      `json:"created_at"`                                  // 用户创建时间
	UpdatedAt           time.Time      `json:"updated_at"`                                  // 用户最后修改时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间戳，支持逻辑删除

	// 关联关系
	Folders []Folder `gorm:"foreignKey:OwnerID" json:"folders,omitempty"` // 一对多关联文件夹
}

// TableName 指定User模型对应的数据库表名
func (User) TableName() string {
	return "users"
}

// TelegramLinked 判断用户是否已关联Telegram账户
func (u *User) TelegramLinked() bool {
	return u.TelegramUserID != nil && u.TelegramChatID != nil
}

// OAuthToken OAuth令牌模型
// 保存用户的Google访问令牌和刷新令牌，每个用户最多一条记录
// 访问令牌过期后由令牌源自动刷新并回写
type OAuthToken struct {
	ID           uint           `gorm:"primarykey" json:"id"`                 // 主键ID，自增
	UserID       uint           `gorm:"not null;uniqueIndex" json:"user_id"`  // 关联的用户ID，外键，唯一
	User         User           `gorm:"foreignKey:UserID" json:"-"`           // 关联的用户对象
	AccessToken  string         `gorm:"not null;size:2048" json:"-"`          // 访问令牌，敏感信息不返回
	RefreshToken string         `gorm:"size:512" json:"-"`                    // 刷新令牌，敏感信息不返回
	TokenType    string         `gorm:"size:20;default:'Bearer'" json:"token_type"` // 令牌类型
	Expiry       time.Time      `json:"expiry"`                               // 访问令牌过期时间
	CreatedAt    time.Time      `json:"created_at"`                           // 令牌创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                           // 令牌最后刷新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间戳
}

// TableName 指定OAuthToken模型对应的数据库表名
func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

// TelegramLinkCode Telegram关联码模型
// 用户在仪表盘申请关联码，通过 /start <code> 发送给机器人完成账户关联
// 关联码一次性使用，默认10分钟内有效
type TelegramLinkCode struct {
	ID        uint           `gorm:"primarykey" json:"id"`                     // 主键ID，自增
	Code      string         `gorm:"not null;uniqueIndex;size:36" json:"code"` // 关联码（UUID格式）
	UserID    uint           `gorm:"not null;index" json:"user_id"`            // 申请关联码的用户ID
	User      User           `gorm:"foreignKey:UserID" json:"-"`               // 关联的用户对象
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`               // 过期时间
	UsedAt    *time.Time     `json:"used_at,omitempty"`                        // 使用时间，未使用时为空
	CreatedAt time.Time      `json:"created_at"`                               // 创建时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间戳
}

// TableName 指定TelegramLinkCode模型对应的数据库表名
func (TelegramLinkCode) TableName() string {
	return "telegram_link_codes"
}
