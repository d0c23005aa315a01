// Package storage 提供邮件附件归档的对象存储服务
// 支持阿里云OSS、腾讯云COS和七牛云Kodo三种提供商
// 附件按 归档前缀/用户ID/邮件ID/文件名 的路径组织
package storage

import (
	"io"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
)

// Provider 对象存储提供商接口
// 抽象不同云服务商的存储操作，便于测试时替换为内存实现
type Provider interface {
	// UploadFile 上传文件到对象存储
	UploadFile(objectKey string, reader io.Reader, contentType string) error

	// DeleteFile 删除对象存储中的文件
	DeleteFile(objectKey string) error

	// FileExists 检查文件是否存在
	FileExists(objectKey string) (bool, error)

	// TestConnection 测试存储连接是否可用
	TestConnection() error
}

// 支持的存储提供商标识
const (
	ProviderAliyun  = "aliyun"  // 阿里云OSS
	ProviderTencent = "tencent" // 腾讯云COS
	ProviderQiniu   = "qiniu"   // 七牛云Kodo
)

// NewProvider 根据存储配置创建对应的提供商实例
func NewProvider(cfg *database.StorageConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderAliyun:
		return newAliyunProvider(cfg)
	case ProviderTencent:
		return newTencentProvider(cfg)
	case ProviderQiniu:
		return newQiniuProvider(cfg)
	default:
		return nil, apperrors.ErrStorageProviderNotSupportedError.WithDetails(cfg.Provider)
	}
}
