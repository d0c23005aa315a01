package telegram

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"gorm.io/gorm"
)

// Notifier 通知推送接口
// 邮件代理通过此接口向用户推送新邮件通知
type Notifier interface {
	// NotifyMessage 推送新邮件通知
	// 投递结果写入通知日志，用户未关联Telegram时返回ErrTelegramNotLinked
	NotifyMessage(user *database.User, msg *database.ProcessedMessage, folderName string) error
}

// BotService Telegram机器人服务接口
// 管理机器人的长轮询生命周期并处理用户指令
type BotService interface {
	Notifier

	// Start 启动机器人长轮询
	Start() error

	// Stop 停止机器人长轮询
	Stop()

	// IsRunning 返回机器人是否在运行
	IsRunning() bool

	// BotUserName 返回机器人的用户名，用于生成关联深链
	BotUserName() string
}

// botService Telegram机器人服务实现
// 通过长轮询接收用户发来的 /start <code> 指令完成账户关联
type botService struct {
	db    *gorm.DB
	links LinkService
	bot   *tgbotapi.BotAPI

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewBotService 创建Telegram机器人服务实例
// 参数:
//   db - 数据库连接，用于记录通知日志
//   links - 关联服务，处理关联码核销
//   botToken - 机器人令牌
// 返回:
//   BotService - 机器人服务接口实例
//   error - 令牌无效时返回错误
func NewBotService(db *gorm.DB, links LinkService, botToken string) (BotService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram机器人失败: %w", err)
	}

	logger.Infof("[Telegram机器人] 已连接机器人账户: @%s", bot.Self.UserName)
	return &botService{
		db:    db,
		links: links,
		bot:   bot,
	}, nil
}

// BotUserName 返回机器人的用户名，用于生成深链
func (s *botService) BotUserName() string {
	return s.bot.Self.UserName
}

// Start 启动机器人长轮询
func (s *botService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("Telegram机器人已在运行")
	}

	s.stopChan = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.pollLoop()

	logger.Info("[Telegram机器人] 长轮询已启动")
	return nil
}

// Stop 停止机器人长轮询
func (s *botService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.bot.StopReceivingUpdates()
	s.wg.Wait()
	logger.Info("[Telegram机器人] 长轮询已停止")
}

// IsRunning 返回机器人是否在运行
func (s *botService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// pollLoop 长轮询主循环，逐条处理收到的更新
func (s *botService) pollLoop() {
	defer s.wg.Done()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := s.bot.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-s.stopChan:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			s.handleMessage(update.Message)
		}
	}
}

// handleMessage 处理用户发来的消息
func (s *botService) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		s.handleStart(msg)
	case "help":
		s.reply(msg.Chat.ID, "发送 /start <关联码> 完成账户关联。关联码在邮件助手仪表盘获取。")
	default:
		s.reply(msg.Chat.ID, "未知指令，发送 /help 查看使用说明。")
	}
}

// handleStart 处理 /start <code> 指令，核销关联码完成账户关联
func (s *botService) handleStart(msg *tgbotapi.Message) {
	code := msg.CommandArguments()
	if code == "" {
		s.reply(msg.Chat.ID, "请在邮件助手仪表盘获取关联码后，发送 /start <关联码> 完成关联。")
		return
	}

	user, err := s.links.ConsumeCode(code, msg.From.ID, msg.Chat.ID)
	if err != nil {
		logger.Warnf("[Telegram机器人] 关联码核销失败: %v", err)
		if appErr, ok := apperrors.GetAppError(err); ok {
			switch appErr.Code {
			case apperrors.ErrTelegramCodeExpired:
				s.reply(msg.Chat.ID, "关联码已过期，请在仪表盘重新获取。")
				return
			case apperrors.ErrTelegramAlreadyLinked:
				s.reply(msg.Chat.ID, "该账户已完成关联，无需重复操作。")
				return
			}
		}
		s.reply(msg.Chat.ID, "关联码无效，请在仪表盘重新获取。")
		return
	}

	s.reply(msg.Chat.ID, fmt.Sprintf("关联成功！%s 的新邮件通知将推送到这里。", user.Email))
}

// reply 向指定会话发送文本消息
func (s *botService) reply(chatID int64, text string) {
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warnf("[Telegram机器人] 发送消息失败: %v", err)
	}
}

// NotifyMessage 推送新邮件通知
// 投递成功与否都会写入通知日志，供仪表盘统计失败次数
func (s *botService) NotifyMessage(user *database.User, msg *database.ProcessedMessage, folderName string) error {
	if !user.TelegramLinked() {
		return apperrors.ErrTelegramNotLinkedError
	}

	text := fmt.Sprintf("📬 新邮件已归类到「%s」\n发件人: %s\n主题: %s", folderName, msg.Sender, msg.Subject)
	if msg.Snippet != "" {
		text += "\n\n" + msg.Snippet
	}

	_, sendErr := s.bot.Send(tgbotapi.NewMessage(*user.TelegramChatID, text))

	log := &database.NotificationLog{
		UserID:             user.ID,
		ChatID:             *user.TelegramChatID,
		ProcessedMessageID: &msg.ID,
		SentAt:             time.Now(),
	}
	if sendErr != nil {
		log.Status = database.NotificationStatusFailed
		log.ErrorMsg = sendErr.Error()
	} else {
		log.Status = database.NotificationStatusSent
	}
	if err := s.db.Create(log).Error; err != nil {
		logger.Errorf("[Telegram机器人] 写入通知日志失败: %v", err)
	}

	if sendErr != nil {
		return apperrors.WrapCode(apperrors.ErrTelegramSendFailed, sendErr)
	}
	return nil
}
