package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/gorm"
)

// ArchiveService 附件归档服务接口
// 邮件代理处理邮件时调用，将附件上传到激活的对象存储配置
type ArchiveService interface {
	// ArchiveAttachments 归档指定邮件的所有附件
	// 没有激活的存储配置时静默跳过；单个附件失败不影响其余附件
	// 返回成功归档的附件数量
	ArchiveAttachments(ctx context.Context, user *database.User, msg *database.ProcessedMessage, client gmail.Client) (int, error)

	// ListArchives 分页查询用户的归档日志
	ListArchives(user *database.User, page, pageSize int) ([]*database.ArchiveLog, int64, error)
}

// archiveService 附件归档服务实现
type archiveService struct {
	db      *gorm.DB
	configs ConfigService

	// 提供商构建函数，测试时可替换为内存实现
	newProvider func(*database.StorageConfig) (Provider, error)
}

// NewArchiveService 创建附件归档服务实例
func NewArchiveService(db *gorm.DB, configs ConfigService) ArchiveService {
	return &archiveService{
		db:          db,
		configs:     configs,
		newProvider: NewProvider,
	}
}

// ArchiveAttachments 归档指定邮件的所有附件
func (s *archiveService) ArchiveAttachments(ctx context.Context, user *database.User, msg *database.ProcessedMessage, client gmail.Client) (int, error) {
	cfg, err := s.configs.GetActiveConfig()
	if err != nil {
		if appErr, ok := apperrors.GetAppError(err); ok && appErr.Code == apperrors.ErrStorageConfigNotFound {
			// 未配置归档存储，跳过
			return 0, nil
		}
		return 0, err
	}

	attachments, err := client.ListAttachments(ctx, msg.GmailMessageID)
	if err != nil {
		return 0, err
	}
	if len(attachments) == 0 {
		return 0, nil
	}

	provider, err := s.newProvider(cfg)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, att := range attachments {
		if err := s.archiveOne(ctx, cfg, provider, msg, client, att); err != nil {
			logger.Warnf("[附件归档] 归档附件失败: %s (邮件: %s), 错误: %v", att.FileName, msg.GmailMessageID, err)
			continue
		}
		archived++
	}

	if archived > 0 {
		logger.Infof("[附件归档] 邮件附件归档完成: %s (成功: %d/%d)", msg.GmailMessageID, archived, len(attachments))
	}
	return archived, nil
}

// archiveOne 下载并上传单个附件，结果写入归档日志
func (s *archiveService) archiveOne(ctx context.Context, cfg *database.StorageConfig, provider Provider, msg *database.ProcessedMessage, client gmail.Client, att gmail.AttachmentMeta) error {
	objectKey := buildObjectKey(cfg.ArchivePath, msg.UserID, msg.GmailMessageID, att.FileName)

	log := &database.ArchiveLog{
		StorageConfigID:    cfg.ID,
		ProcessedMessageID: msg.ID,
		ObjectKey:          objectKey,
		FileName:           att.FileName,
		FileSize:           att.Size,
	}

	start := time.Now()
	uploadErr := s.downloadAndUpload(ctx, provider, msg, client, att, objectKey)
	log.Duration = time.Since(start).Milliseconds()

	if uploadErr != nil {
		log.Status = database.ArchiveStatusFailed
		log.ErrorMsg = uploadErr.Error()
	} else {
		log.Status = database.ArchiveStatusSuccess
	}

	if err := s.db.Create(log).Error; err != nil {
		logger.Errorf("[附件归档] 写入归档日志失败: %v", err)
	}

	if uploadErr != nil {
		return apperrors.WrapCode(apperrors.ErrStorageUploadFailed, uploadErr)
	}
	return nil
}

// downloadAndUpload 从Gmail下载附件并上传到对象存储
func (s *archiveService) downloadAndUpload(ctx context.Context, provider Provider, msg *database.ProcessedMessage, client gmail.Client, att gmail.AttachmentMeta, objectKey string) error {
	data, err := client.GetAttachment(ctx, msg.GmailMessageID, att.AttachmentID)
	if err != nil {
		return err
	}
	return provider.UploadFile(objectKey, bytes.NewReader(data), att.MimeType)
}

// ListArchives 分页查询用户的归档日志
func (s *archiveService) ListArchives(user *database.User, page, pageSize int) ([]*database.ArchiveLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	db := s.db.Model(&database.ArchiveLog{}).
		Joins("JOIN processed_messages ON processed_messages.id = archive_logs.processed_message_id").
		Where("processed_messages.user_id = ?", user.ID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	var logs []*database.ArchiveLog
	err := db.Order("archive_logs.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	return logs, total, nil
}

// buildObjectKey 构建附件在存储桶中的完整路径
// 路径格式: 归档前缀/用户ID/邮件ID/文件名
func buildObjectKey(prefix string, userID uint, messageID, fileName string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "archive"
	}
	return fmt.Sprintf("%s/%d/%s/%s", prefix, userID, messageID, sanitizeFileName(fileName))
}

// sanitizeFileName 清理文件名中的路径分隔符，避免破坏对象路径结构
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}
