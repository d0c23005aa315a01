// Package database 提供数据库迁移和初始化功能
// 包含邮件代理相关表的索引优化和默认文件夹模板
package database

import (
	"github.com/weiwangfds/mailagent/internal/logger"
	"gorm.io/gorm"
)

// DefaultFolderTemplate 默认文件夹模板
// 用户完成入驻时如果还没有任何文件夹，按此模板创建
type DefaultFolderTemplate struct {
	Name          string // 文件夹名称
	Description   string // 文件夹描述
	Color         string // 文件夹颜色
	MatchSenders  string // 发件人匹配规则
	MatchKeywords string // 主题关键词匹配规则
}

// DefaultFolderTemplates 返回入驻时的默认文件夹模板
// 与QA验收时观察到的三个默认文件夹保持一致
func DefaultFolderTemplates() []DefaultFolderTemplate {
	return []DefaultFolderTemplate{
		{
			Name:          "工作",
			Description:   "工作往来邮件",
			Color:         "#2196F3",
			MatchKeywords: "meeting,invoice review,项目,会议",
		},
		{
			Name:          "账单",
			Description:   "账单与付款通知",
			Color:         "#FF9800",
			MatchSenders:  "billing@,noreply@pay,invoice@",
			MatchKeywords: "账单,invoice,payment,receipt",
		},
		{
			Name:          "订阅",
			Description:   "新闻订阅与推广邮件",
			Color:         "#4CAF50",
			MatchSenders:  "newsletter@,news@,digest@",
			MatchKeywords: "unsubscribe,newsletter,订阅",
		},
	}
}

// MigrateMailTables 执行邮件代理相关表的数据库迁移
// 参数: db *gorm.DB - GORM数据库连接实例
// 返回值: error - 迁移失败时返回错误信息
// 用途: 创建用户、文件夹、邮件记录等表，并建立必要的索引
func MigrateMailTables(db *gorm.DB) error {
	logger.Info("开始执行邮件代理数据库迁移...")

	err := db.AutoMigrate(
		&User{},             // 用户主表
		&OAuthToken{},       // OAuth令牌表
		&TelegramLinkCode{}, // Telegram关联码表
		&Folder{},           // 文件夹表
		&ProcessedMessage{}, // 已处理邮件表
		&NotificationLog{},  // 通知日志表
		&StorageConfig{},    // 存储配置表
		&ArchiveLog{},       // 附件归档日志表
	)
	if err != nil {
		return err
	}

	if err := createMailIndexes(db); err != nil {
		return err
	}

	logger.Info("邮件代理数据库迁移完成")
	return nil
}

// createMailIndexes 创建邮件代理系统的复合索引
// 用途: 优化文件夹列表、邮件记录和通知日志的查询性能
func createMailIndexes(db *gorm.DB) error {
	indexes := []string{
		// 文件夹查询优化：按用户和排序字段列出文件夹
		"CREATE INDEX IF NOT EXISTS idx_folders_owner_sort ON folders(owner_id, sort_order) WHERE deleted_at IS NULL",
		// 邮件记录查询优化：按用户和处理时间倒序
		"CREATE INDEX IF NOT EXISTS idx_messages_user_processed ON processed_messages(user_id, processed_at DESC) WHERE deleted_at IS NULL",
		// 文件夹邮件统计优化
		"CREATE INDEX IF NOT EXISTS idx_messages_folder_processed ON processed_messages(folder_id, processed_at DESC) WHERE deleted_at IS NULL",
		// 通知日志查询优化：按用户和投递状态
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_status ON notification_logs(user_id, status) WHERE deleted_at IS NULL",
		// 关联码查询优化：按过期时间清理
		"CREATE INDEX IF NOT EXISTS idx_link_codes_expires ON telegram_link_codes(expires_at) WHERE deleted_at IS NULL",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.Errorf("创建索引失败: %s, 错误: %v", indexSQL, err)
			return err
		}
	}

	logger.Info("邮件代理索引创建完成")
	return nil
}
