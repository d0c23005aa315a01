// Package storage 提供存储配置与附件归档服务的单元测试
package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// memProvider 内存存储提供商实现
type memProvider struct {
	objects map[string][]byte
	failAll bool
}

func newMemProvider() *memProvider {
	return &memProvider{objects: make(map[string][]byte)}
}

func (p *memProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	if p.failAll {
		return assert.AnError
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	p.objects[objectKey] = data
	return nil
}

func (p *memProvider) DeleteFile(objectKey string) error {
	delete(p.objects, objectKey)
	return nil
}

func (p *memProvider) FileExists(objectKey string) (bool, error) {
	_, ok := p.objects[objectKey]
	return ok, nil
}

func (p *memProvider) TestConnection() error {
	if p.failAll {
		return assert.AnError
	}
	return nil
}

// attachmentClient 返回固定附件的Gmail客户端实现
type attachmentClient struct {
	attachments []gmail.AttachmentMeta
	content     []byte
}

func (c *attachmentClient) EnsureLabel(ctx context.Context, name string) (string, error) {
	return "", nil
}
func (c *attachmentClient) RenameLabel(ctx context.Context, labelID, newName string) error { return nil }
func (c *attachmentClient) DeleteLabel(ctx context.Context, labelID string) error          { return nil }
func (c *attachmentClient) ListNewMessages(ctx context.Context, query string, max int64) ([]gmail.MessageMeta, error) {
	return nil, nil
}
func (c *attachmentClient) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	return nil
}
func (c *attachmentClient) ListAttachments(ctx context.Context, messageID string) ([]gmail.AttachmentMeta, error) {
	return c.attachments, nil
}
func (c *attachmentClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return c.content, nil
}

func setupStorageDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateMailTables(db))
	return db
}

// TestConfigServiceCRUD 测试存储配置的增删改查
func TestConfigServiceCRUD(t *testing.T) {
	db := setupStorageDB(t)
	svc := NewConfigService(db)

	cfg, err := svc.CreateConfig(&CreateConfigRequest{
		Name:      "主存储",
		Provider:  ProviderAliyun,
		Region:    "cn-hangzhou",
		Bucket:    "mail-archive",
		AccessKey: "ak",
		SecretKey: "sk",
	})
	require.NoError(t, err)
	assert.Equal(t, "archive", cfg.ArchivePath)
	assert.True(t, cfg.IsEnabled)
	assert.False(t, cfg.IsActive)

	t.Run("激活配置互斥", func(t *testing.T) {
		second, err := svc.CreateConfig(&CreateConfigRequest{
			Name:      "备用存储",
			Provider:  ProviderQiniu,
			Region:    "z0",
			Bucket:    "backup",
			AccessKey: "ak2",
			SecretKey: "sk2",
		})
		require.NoError(t, err)

		require.NoError(t, svc.ActivateConfig(cfg.ID))
		require.NoError(t, svc.ActivateConfig(second.ID))

		active, err := svc.GetActiveConfig()
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)

		// 第一个配置已取消激活
		first, err := svc.GetConfig(cfg.ID)
		require.NoError(t, err)
		assert.False(t, first.IsActive)
	})

	t.Run("激活中的配置不可删除", func(t *testing.T) {
		active, err := svc.GetActiveConfig()
		require.NoError(t, err)

		err = svc.DeleteConfig(active.ID)
		require.Error(t, err)
	})

	t.Run("更新配置重置测试状态", func(t *testing.T) {
		newBucket := "renamed"
		updated, err := svc.UpdateConfig(cfg.ID, &UpdateConfigRequest{Bucket: &newBucket})
		require.NoError(t, err)

		fresh, err := svc.GetConfig(updated.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", fresh.Bucket)
		assert.Empty(t, fresh.TestStatus)
	})

	t.Run("不存在的配置返回404", func(t *testing.T) {
		_, err := svc.GetConfig(9999)
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrStorageConfigNotFound, appErr.Code)
	})
}

// TestArchiveAttachments 测试附件归档
func TestArchiveAttachments(t *testing.T) {
	db := setupStorageDB(t)
	configs := NewConfigService(db)

	user := &database.User{UserID: "u1", Email: "tester@gmail.com"}
	require.NoError(t, db.Create(user).Error)

	msg := &database.ProcessedMessage{
		UserID:         user.ID,
		GmailMessageID: "msg-42",
		Subject:        "带附件的邮件",
	}
	require.NoError(t, db.Create(msg).Error)

	client := &attachmentClient{
		attachments: []gmail.AttachmentMeta{
			{AttachmentID: "a1", FileName: "report.pdf", MimeType: "application/pdf", Size: 4},
			{AttachmentID: "a2", FileName: "评审/意见.docx", MimeType: "application/msword", Size: 4},
		},
		content: []byte("data"),
	}

	t.Run("无激活配置时跳过", func(t *testing.T) {
		svc := NewArchiveService(db, configs)
		count, err := svc.ArchiveAttachments(context.Background(), user, msg, client)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	// 创建并激活配置
	cfg, err := configs.CreateConfig(&CreateConfigRequest{
		Name:      "归档",
		Provider:  ProviderAliyun,
		Region:    "cn-hangzhou",
		Bucket:    "archive",
		AccessKey: "ak",
		SecretKey: "sk",
	})
	require.NoError(t, err)
	require.NoError(t, configs.ActivateConfig(cfg.ID))

	t.Run("附件上传并记录日志", func(t *testing.T) {
		provider := newMemProvider()
		svc := &archiveService{
			db:      db,
			configs: configs,
			newProvider: func(*database.StorageConfig) (Provider, error) {
				return provider, nil
			},
		}

		count, err := svc.ArchiveAttachments(context.Background(), user, msg, client)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		// 对象路径包含归档前缀、用户和邮件ID，文件名中的分隔符被清理
		assert.Contains(t, provider.objects, "archive/1/msg-42/report.pdf")
		assert.Contains(t, provider.objects, "archive/1/msg-42/评审_意见.docx")

		var logs []database.ArchiveLog
		require.NoError(t, db.Where("processed_message_id = ?", msg.ID).Find(&logs).Error)
		require.Len(t, logs, 2)
		for _, log := range logs {
			assert.Equal(t, database.ArchiveStatusSuccess, log.Status)
		}
	})

	t.Run("上传失败写入失败日志", func(t *testing.T) {
		provider := newMemProvider()
		provider.failAll = true
		svc := &archiveService{
			db:      db,
			configs: configs,
			newProvider: func(*database.StorageConfig) (Provider, error) {
				return provider, nil
			},
		}

		count, err := svc.ArchiveAttachments(context.Background(), user, msg, client)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		var failed int64
		require.NoError(t, db.Model(&database.ArchiveLog{}).
			Where("status = ?", database.ArchiveStatusFailed).
			Count(&failed).Error)
		assert.Equal(t, int64(2), failed)
	})
}

// TestBuildObjectKey 测试对象路径构建
func TestBuildObjectKey(t *testing.T) {
	assert.Equal(t, "archive/7/m1/a.pdf", buildObjectKey("archive", 7, "m1", "a.pdf"))
	assert.Equal(t, "archive/7/m1/attachment", buildObjectKey("", 7, "m1", ""))
	assert.Equal(t, "prefix/7/m1/a_b.pdf", buildObjectKey("/prefix/", 7, "m1", "a/b.pdf"))
}

// TestNewProviderUnsupported 测试不支持的提供商
func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(&database.StorageConfig{Provider: "aws"})
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrStorageProviderNotSupported, appErr.Code)
}
