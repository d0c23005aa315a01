// Package database 定义了对象存储相关的数据库模型
// 包含存储配置和附件归档日志等核心数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// StorageConfig 对象存储服务配置模型
// 用于管理不同云服务商的存储配置信息，支持阿里云、腾讯云、七牛云
// 附件归档功能通过激活的配置上传邮件附件，系统中只能有一个激活配置
type StorageConfig struct {
	ID          uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	Name        string         `gorm:"not null;size:100" json:"name"`                 // 配置名称，用于标识不同的存储配置
	Provider    string         `gorm:"not null;size:20" json:"provider"`              // 服务提供商：aliyun（阿里云）、tencent（腾讯云）、qiniu（七牛云）
	Region      string         `gorm:"not null;size:50" json:"region"`                // 服务区域，如：cn-hangzhou、ap-beijing等
	Bucket      string         `gorm:"not null;size:100" json:"bucket"`               // 存储桶名称
	AccessKey   string         `gorm:"not null;size:100" json:"access_key"`           // 访问密钥ID，用于API认证
	SecretKey   string         `gorm:"not null;size:200" json:"secret_key,omitempty"` // 访问密钥Secret，敏感信息，API响应时不返回
	Endpoint    string         `gorm:"size:200" json:"endpoint"`                      // 自定义服务端点URL，可选配置
	IsActive    bool           `gorm:"default:false" json:"is_active"`                // 是否为当前激活使用的配置
	IsEnabled   bool           `gorm:"default:true" json:"is_enabled"`                // 配置是否启用，禁用后不可使用
	ArchivePath string         `gorm:"size:200;default:'archive'" json:"archive_path"` // 附件在存储桶中的路径前缀
	LastTestAt  *time.Time     `json:"last_test_at,omitempty"`                        // 最后一次连接测试时间
	TestStatus  string         `gorm:"size:20" json:"test_status"`                    // 最后一次连接测试结果：ok、failed
	CreatedAt   time.Time      `json:"created_at"`                                    // 配置创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                    // 配置最后修改时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除
}

// TableName 指定StorageConfig模型对应的数据库表名
func (StorageConfig) TableName() string {
	return "storage_configs"
}

// ArchiveLog 附件归档日志模型
// 记录邮件附件上传到对象存储的操作历史，用于追踪归档状态和错误排查
type ArchiveLog struct {
	ID                 uint              `gorm:"primarykey" json:"id"`                                        // 主键ID，自增
	StorageConfigID    uint              `gorm:"not null;index" json:"storage_config_id"`                     // 关联的存储配置ID
	StorageConfig      StorageConfig     `gorm:"foreignKey:StorageConfigID" json:"storage_config,omitempty"`  // 关联的存储配置对象
	ProcessedMessageID uint              `gorm:"not null;index" json:"processed_message_id"`                  // 关联的已处理邮件ID
	ProcessedMessage   ProcessedMessage  `gorm:"foreignKey:ProcessedMessageID" json:"-"`                      // 关联的邮件记录
	ObjectKey          string            `gorm:"not null;size:500" json:"object_key"`                         // 附件在存储中的完整路径
	FileName           string            `gorm:"size:255" json:"file_name"`                                   // 附件原始文件名
	FileSize           int64             `json:"file_size"`                                                   // 附件大小，单位为字节
	Status             string            `gorm:"not null;size:20" json:"status"`                              // 归档状态：success（成功）、failed（失败）
	ErrorMsg           string            `gorm:"type:text" json:"error_msg"`                                  // 归档失败时的详细错误信息
	Duration           int64             `json:"duration"`                                                    // 上传耗时，单位为毫秒
	CreatedAt          time.Time         `json:"created_at"`                                                  // 日志创建时间
	UpdatedAt          time.Time         `json:"updated_at"`                                                  // 日志最后更新时间
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`                                              // 软删除时间戳，支持逻辑删除
}

// TableName 指定ArchiveLog模型对应的数据库表名
func (ArchiveLog) TableName() string {
	return "archive_logs"
}

// 归档状态常量
const (
	ArchiveStatusSuccess = "success" // 归档成功
	ArchiveStatusFailed  = "failed"  // 归档失败
)
