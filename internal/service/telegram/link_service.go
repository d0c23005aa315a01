// Package telegram 提供Telegram账户关联和通知推送服务
// 包含关联码签发与核销、机器人长轮询和邮件通知投递功能
package telegram

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"gorm.io/gorm"
)

// linkCodeTTL 关联码有效期
const linkCodeTTL = 10 * time.Minute

// LinkCodeResult 关联码签发结果
type LinkCodeResult struct {
	Code      string    `json:"code"`       // 关联码，发送给机器人 /start <code> 完成关联
	ExpiresAt time.Time `json:"expires_at"` // 关联码过期时间
	BotURL    string    `json:"bot_url"`    // 机器人深链，携带关联码
}

// LinkStatusResult Telegram关联状态结果
type LinkStatusResult struct {
	Linked         bool       `json:"linked"`                     // 是否已关联
	TelegramUserID *int64     `json:"telegram_user_id,omitempty"` // 关联的Telegram用户ID
	LinkedAt       *time.Time `json:"linked_at,omitempty"`        // 关联时间
}

// LinkService Telegram关联服务接口
// 定义了关联码签发、核销和关联状态管理的业务操作方法
type LinkService interface {
	// IssueCode 为用户签发一次性关联码
	// 用户已关联时返回ErrTelegramAlreadyLinked，旧的未使用关联码会被作废
	IssueCode(user *database.User) (*LinkCodeResult, error)

	// ConsumeCode 核销关联码并完成账户关联
	// 由机器人在收到 /start <code> 时调用
	ConsumeCode(code string, telegramUserID, chatID int64) (*database.User, error)

	// Status 查询用户的Telegram关联状态
	Status(user *database.User) *LinkStatusResult

	// Unlink 解除用户的Telegram关联
	Unlink(user *database.User) error

	// SetBotName 设置机器人用户名，用于拼接关联深链
	// 机器人启动后由主程序回填
	SetBotName(name string)
}

// linkService Telegram关联服务实现
type linkService struct {
	db      *gorm.DB
	botName string
}

// NewLinkService 创建Telegram关联服务实例
// botName用于拼接机器人深链，可为空
func NewLinkService(db *gorm.DB, botName string) LinkService {
	return &linkService{
		db:      db,
		botName: botName,
	}
}

// SetBotName 设置机器人用户名
func (s *linkService) SetBotName(name string) {
	s.botName = name
}

// IssueCode 为用户签发一次性关联码
func (s *linkService) IssueCode(user *database.User) (*LinkCodeResult, error) {
	if user.TelegramLinked() {
		return nil, apperrors.ErrTelegramAlreadyLinkedError
	}

	code := &database.TelegramLinkCode{
		Code:      uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(linkCodeTTL),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 作废该用户之前签发的未使用关联码
		if err := tx.Where("user_id = ? AND used_at IS NULL", user.ID).
			Delete(&database.TelegramLinkCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseTransaction, err)
	}

	result := &LinkCodeResult{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	}
	if s.botName != "" {
		result.BotURL = "https://t.me/" + s.botName + "?start=" + code.Code
	}

	logger.Infof("[Telegram关联] 签发关联码: 用户 %s", user.Email)
	return result, nil
}

// ConsumeCode 核销关联码并完成账户关联
// 关联码一次性使用，过期或已使用的关联码返回对应错误
func (s *linkService) ConsumeCode(code string, telegramUserID, chatID int64) (*database.User, error) {
	if code == "" {
		return nil, apperrors.ErrTelegramCodeInvalidError
	}

	var user database.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var linkCode database.TelegramLinkCode
		if err := tx.Where("code = ?", code).First(&linkCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTelegramCodeInvalidError
			}
			return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}

		if linkCode.UsedAt != nil {
			return apperrors.ErrTelegramCodeInvalidError.WithDetails("关联码已被使用")
		}
		if time.Now().After(linkCode.ExpiresAt) {
			return apperrors.ErrTelegramCodeExpiredError
		}

		if err := tx.First(&user, linkCode.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFoundError
			}
			return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}
		if user.TelegramLinked() {
			return apperrors.ErrTelegramAlreadyLinkedError
		}

		now := time.Now()
		if err := tx.Model(&linkCode).Update("used_at", &now).Error; err != nil {
			return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}

		updates := map[string]interface{}{
			"telegram_user_id":   telegramUserID,
			"telegram_chat_id":   chatID,
			"telegram_linked_at": &now,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}

		user.TelegramUserID = &telegramUserID
		user.TelegramChatID = &chatID
		user.TelegramLinkedAt = &now
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.GetAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseTransaction, err)
	}

	logger.Infof("[Telegram关联] 账户关联成功: 用户 %s, Telegram用户 %d", user.Email, telegramUserID)
	return &user, nil
}

// Status 查询用户的Telegram关联状态
func (s *linkService) Status(user *database.User) *LinkStatusResult {
	return &LinkStatusResult{
		Linked:         user.TelegramLinked(),
		TelegramUserID: user.TelegramUserID,
		LinkedAt:       user.TelegramLinkedAt,
	}
}

// Unlink 解除用户的Telegram关联
func (s *linkService) Unlink(user *database.User) error {
	if !user.TelegramLinked() {
		return apperrors.ErrTelegramNotLinkedError
	}

	updates := map[string]interface{}{
		"telegram_user_id":   nil,
		"telegram_chat_id":   nil,
		"telegram_linked_at": nil,
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	user.TelegramUserID = nil
	user.TelegramChatID = nil
	user.TelegramLinkedAt = nil

	logger.Infof("[Telegram关联] 解除账户关联: 用户 %s", user.Email)
	return nil
}
