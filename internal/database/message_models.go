// Package database 定义了邮件处理相关的数据库模型
// 包含已处理邮件记录和通知日志等核心数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// ProcessedMessage 已处理邮件模型
// 邮件代理每处理一封Gmail邮件写入一条记录，保证同一邮件不被重复处理
// 同一用户下gmail_message_id唯一
type ProcessedMessage struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                          // 主键ID，自增
	UserID         uint           `gorm:"not null;uniqueIndex:idx_messages_user_gmail" json:"user_id"`                   // 所属用户ID，外键
	User           User           `gorm:"foreignKey:UserID" json:"-"`                                                    // 关联的用户对象
	FolderID       *uint          `gorm:"index" json:"folder_id,omitempty"`                                              // 归类到的文件夹ID，未匹配规则时为空
	Folder         *Folder        `gorm:"foreignKey:FolderID" json:"folder,omitempty"`                                   // 关联的文件夹对象
	GmailMessageID string         `gorm:"not null;size:32;uniqueIndex:idx_messages_user_gmail" json:"gmail_message_id"` // Gmail邮件ID
	Subject        string         `gorm:"size:500" json:"subject"`                                                       // 邮件主题
	Sender         string         `gorm:"size:255;index" json:"sender"`                                                  // 发件人地址
	Snippet        string         `gorm:"size:1000" json:"snippet"`                                                      // 邮件摘要片段
	Labeled        bool           `gorm:"default:false" json:"labeled"`                                                  // Gmail标签是否已成功应用
	Notified       bool           `gorm:"default:false" json:"notified"`                                                 // 是否已推送Telegram通知
	ProcessedAt    time.Time      `json:"processed_at"`                                                                  // 处理时间
	CreatedAt      time.Time      `json:"created_at"`                                                                    // 记录创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                                    // 记录最后修改时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                                // 软删除时间戳
}

// TableName 指定ProcessedMessage模型对应的数据库表名
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}

// NotificationLog 通知日志模型
// 记录每次Telegram通知的投递结果，用于排查推送失败和仪表盘统计
type NotificationLog struct {
	ID                 uint              `gorm:"primarykey" json:"id"`                         // 主键ID，自增
	UserID             uint              `gorm:"not null;index" json:"user_id"`                // 所属用户ID，外键
	ChatID             int64             `json:"chat_id"`                                      // 目标Telegram会话ID
	ProcessedMessageID *uint             `gorm:"index" json:"processed_message_id,omitempty"`  // 关联的已处理邮件ID
	ProcessedMessage   *ProcessedMessage `gorm:"foreignKey:ProcessedMessageID" json:"-"`       // 关联的邮件记录
	Status             string            `gorm:"not null;size:20" json:"status"`               // 投递状态：sent（成功）、failed（失败）
	ErrorMsg           string            `gorm:"type:text" json:"error_msg"`                   // 投递失败时的详细错误信息
	SentAt             time.Time         `json:"sent_at"`                                      // 投递时间
	CreatedAt          time.Time         `json:"created_at"`                                   // 日志创建时间
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`                               // 软删除时间戳
}

// TableName 指定NotificationLog模型对应的数据库表名
func (NotificationLog) TableName() string {
	return "notification_logs"
}

// 通知投递状态常量
const (
	NotificationStatusSent   = "sent"   // 投递成功
	NotificationStatusFailed = "failed" // 投递失败
)
