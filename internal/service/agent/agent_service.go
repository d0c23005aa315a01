// Package agent 提供邮件代理的后台轮询服务
// 周期性拉取已入驻用户的新邮件，按文件夹规则分类、打Gmail标签、
// 推送Telegram通知并归档附件
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/weiwangfds/mailagent/config"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"github.com/weiwangfds/mailagent/internal/service/storage"
	"github.com/weiwangfds/mailagent/internal/service/telegram"
	"gorm.io/gorm"
)

// inboxQuery 拉取新邮件使用的Gmail搜索语法
// 已处理的邮件通过processed_messages表的唯一索引去重
const inboxQuery = "in:inbox"

// AgentService 邮件代理服务接口
// 管理后台轮询的生命周期
type AgentService interface {
	// Start 启动后台轮询
	Start() error

	// Stop 停止后台轮询，等待当前轮次完成
	Stop()

	// IsRunning 返回轮询是否在运行
	IsRunning() bool

	// RunOnce 立即执行一轮全量处理
	// 供手动触发和测试使用
	RunOnce(ctx context.Context) error

	// ProcessUser 处理单个用户的新邮件，返回本轮处理的邮件数
	ProcessUser(ctx context.Context, user *database.User) (int, error)
}

// agentService 邮件代理服务实现
type agentService struct {
	db           *gorm.DB
	cfg          config.AgentConfig
	gmailFactory gmail.ClientFactory
	notifier     telegram.Notifier
	archives     storage.ArchiveService

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewAgentService 创建邮件代理服务实例
// 参数:
//   db - 数据库连接
//   cfg - 代理配置（轮询间隔、批量大小）
//   gmailFactory - Gmail客户端工厂
//   notifier - Telegram通知器，可为nil（不推送通知）
//   archives - 附件归档服务，可为nil（不归档附件）
// 返回:
//   AgentService - 邮件代理服务接口实例
func NewAgentService(db *gorm.DB, cfg config.AgentConfig, gmailFactory gmail.ClientFactory, notifier telegram.Notifier, archives storage.ArchiveService) AgentService {
	return &agentService{
		db:           db,
		cfg:          cfg,
		gmailFactory: gmailFactory,
		notifier:     notifier,
		archives:     archives,
	}
}

// Start 启动后台轮询
func (s *agentService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("邮件代理已在运行")
	}

	s.stopChan = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.pollLoop()

	logger.Infof("[邮件代理] 后台轮询已启动 (间隔: %d秒, 批量: %d)", s.cfg.PollInterval, s.cfg.BatchSize)
	return nil
}

// Stop 停止后台轮询
func (s *agentService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("[邮件代理] 后台轮询已停止")
}

// IsRunning 返回轮询是否在运行
func (s *agentService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// pollLoop 轮询主循环
func (s *agentService) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(s.cfg.PollInterval)*time.Second)
			if err := s.RunOnce(ctx); err != nil {
				logger.Errorf("[邮件代理] 轮询执行失败: %v", err)
			}
			cancel()
		}
	}
}

// RunOnce 立即执行一轮全量处理
// 逐个用户处理，单个用户失败不影响其余用户
func (s *agentService) RunOnce(ctx context.Context) error {
	var users []database.User
	err := s.db.Where("onboarding_completed = ?", true).Find(&users).Error
	if err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	for i := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		count, err := s.ProcessUser(ctx, &users[i])
		if err != nil {
			logger.Warnf("[邮件代理] 处理用户邮件失败: %s, 错误: %v", users[i].Email, err)
			continue
		}
		if count > 0 {
			logger.Infof("[邮件代理] 用户邮件处理完成: %s (新邮件: %d)", users[i].Email, count)
		}
	}

	return nil
}

// ProcessUser 处理单个用户的新邮件
func (s *agentService) ProcessUser(ctx context.Context, user *database.User) (int, error) {
	client, err := s.gmailFactory.ForUser(ctx, user)
	if err != nil {
		return 0, err
	}

	// 加载用户的文件夹规则，按优先级排列
	var folders []database.Folder
	if err := s.db.Where("owner_id = ?", user.ID).Order("sort_order ASC").Find(&folders).Error; err != nil {
		return 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	messages, err := client.ListNewMessages(ctx, inboxQuery, int64(s.cfg.BatchSize))
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, meta := range messages {
		// 同一邮件只处理一次
		var existing int64
		if err := s.db.Model(&database.ProcessedMessage{}).
			Where("user_id = ? AND gmail_message_id = ?", user.ID, meta.ID).
			Count(&existing).Error; err != nil {
			return processed, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}
		if existing > 0 {
			continue
		}

		if err := s.processMessage(ctx, user, client, folders, meta); err != nil {
			// 单封邮件失败不影响其余邮件
			logger.Warnf("[邮件代理] 处理邮件失败: %s, 错误: %v", meta.ID, err)
			continue
		}
		processed++
	}

	if processed > 0 {
		now := time.Now()
		if err := s.db.Model(user).Update("last_synced_at", &now).Error; err != nil {
			logger.Errorf("[邮件代理] 更新同步时间失败: %v", err)
		}
	}

	return processed, nil
}

// processMessage 处理单封邮件：分类、打标签、记录、通知、归档
func (s *agentService) processMessage(ctx context.Context, user *database.User, client gmail.Client, folders []database.Folder, meta gmail.MessageMeta) error {
	matched := classify(folders, meta)

	record := &database.ProcessedMessage{
		UserID:         user.ID,
		GmailMessageID: meta.ID,
		Subject:        meta.Subject,
		Sender:         meta.Sender,
		Snippet:        meta.Snippet,
		ProcessedAt:    time.Now(),
	}

	folderName := ""
	if matched != nil {
		record.FolderID = &matched.ID
		folderName = matched.Name

		// 应用Gmail标签，失败时仍记录邮件避免重复处理
		if matched.GmailLabelID != "" {
			if err := client.ApplyLabel(ctx, meta.ID, matched.GmailLabelID); err != nil {
				logger.Warnf("[邮件代理] 应用标签失败: 邮件 %s, 标签 %s, 错误: %v", meta.ID, matched.GmailLabelID, err)
			} else {
				record.Labeled = true
			}
		}
	}

	if err := s.db.Create(record).Error; err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	if matched != nil {
		// 更新文件夹的邮件计数
		if err := s.db.Model(matched).Update("message_count", gorm.Expr("message_count + 1")).Error; err != nil {
			logger.Errorf("[邮件代理] 更新文件夹计数失败: %v", err)
		}

		// 推送Telegram通知
		if s.notifier != nil && user.TelegramLinked() {
			if err := s.notifier.NotifyMessage(user, record, folderName); err != nil {
				logger.Warnf("[邮件代理] 推送通知失败: %v", err)
			} else {
				if err := s.db.Model(record).Update("notified", true).Error; err != nil {
					logger.Errorf("[邮件代理] 更新通知状态失败: %v", err)
				}
			}
		}
	}

	// 归档附件
	if s.archives != nil {
		if _, err := s.archives.ArchiveAttachments(ctx, user, record, client); err != nil {
			logger.Warnf("[邮件代理] 附件归档失败: 邮件 %s, 错误: %v", meta.ID, err)
		}
	}

	return nil
}

// classify 按文件夹规则匹配邮件，返回第一个命中的文件夹
// 规则按sort_order顺序匹配：发件人规则先于关键词规则，均为不区分大小写的子串匹配
func classify(folders []database.Folder, meta gmail.MessageMeta) *database.Folder {
	sender := strings.ToLower(meta.Sender)
	subject := strings.ToLower(meta.Subject)

	for i := range folders {
		f := &folders[i]
		if matchAny(sender, f.MatchSenders) {
			return f
		}
		if matchAny(subject, f.MatchKeywords) {
			return f
		}
	}
	return nil
}

// matchAny 判断目标字符串是否包含规则列表中的任意子串
// 规则为逗号分隔的子串列表，空规则不匹配任何内容
func matchAny(target, rules string) bool {
	if rules == "" || target == "" {
		return false
	}
	for _, rule := range strings.Split(rules, ",") {
		rule = strings.ToLower(strings.TrimSpace(rule))
		if rule != "" && strings.Contains(target, rule) {
			return true
		}
	}
	return false
}
