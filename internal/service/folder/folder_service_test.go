// Package folder 提供文件夹服务的单元测试
// 测试文件夹的创建、重名检查、标签复用和删除等核心功能
package folder

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeGmailClient Gmail客户端的内存实现
// labels记录标签名到标签ID的映射，模拟Gmail侧已存在的标签
type fakeGmailClient struct {
	labels        map[string]string
	created       []string
	renamed       map[string]string
	deleted       []string
	applyErr      error
	appliedLabels map[string][]string
}

func newFakeGmailClient() *fakeGmailClient {
	return &fakeGmailClient{
		labels:        make(map[string]string),
		renamed:       make(map[string]string),
		appliedLabels: make(map[string][]string),
	}
}

func (f *fakeGmailClient) EnsureLabel(ctx context.Context, name string) (string, error) {
	// 模拟Gmail的409行为：同名标签已存在时复用其ID
	for existing, id := range f.labels {
		if strings.EqualFold(existing, name) {
			return id, nil
		}
	}
	id := "label-" + uuid.New().String()[:8]
	f.labels[name] = id
	f.created = append(f.created, name)
	return id, nil
}

func (f *fakeGmailClient) RenameLabel(ctx context.Context, labelID, newName string) error {
	f.renamed[labelID] = newName
	return nil
}

func (f *fakeGmailClient) DeleteLabel(ctx context.Context, labelID string) error {
	f.deleted = append(f.deleted, labelID)
	return nil
}

func (f *fakeGmailClient) ListNewMessages(ctx context.Context, query string, max int64) ([]gmail.MessageMeta, error) {
	return nil, nil
}

func (f *fakeGmailClient) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.appliedLabels[messageID] = append(f.appliedLabels[messageID], labelID)
	return nil
}

func (f *fakeGmailClient) ListAttachments(ctx context.Context, messageID string) ([]gmail.AttachmentMeta, error) {
	return nil, nil
}

func (f *fakeGmailClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return nil, nil
}

// fakeGmailFactory 固定返回同一个客户端的工厂实现
type fakeGmailFactory struct {
	client gmail.Client
}

func (f *fakeGmailFactory) ForUser(ctx context.Context, user *database.User) (gmail.Client, error) {
	return f.client, nil
}

// setupTestDB 设置测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = database.MigrateMailTables(db)
	require.NoError(t, err)

	return db
}

// createTestUser 创建测试用户
func createTestUser(t *testing.T, db *gorm.DB) *database.User {
	user := &database.User{
		UserID: uuid.New().String(),
		Email:  "tester@gmail.com",
		Name:   "测试用户",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func setupFolderService(t *testing.T) (FolderService, *fakeGmailClient, *gorm.DB, *database.User) {
	db := setupTestDB(t)
	client := newFakeGmailClient()
	svc := NewFolderService(db, &fakeGmailFactory{client: client})
	user := createTestUser(t, db)
	return svc, client, db, user
}

// TestCreateFolder 测试创建文件夹
func TestCreateFolder(t *testing.T) {
	svc, client, _, user := setupFolderService(t)
	ctx := context.Background()

	t.Run("创建文件夹并同步Gmail标签", func(t *testing.T) {
		folder, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{
			Name:          "发票",
			Description:   "发票邮件",
			MatchKeywords: "invoice,发票",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, folder.FolderID)
		assert.Equal(t, "发票", folder.Name)
		assert.NotEmpty(t, folder.GmailLabelID)
		assert.Equal(t, folder.GmailLabelID, client.labels["发票"])
	})

	t.Run("同名文件夹不可重复创建", func(t *testing.T) {
		_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "发票"})
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrFolderAlreadyExists, appErr.Code)
	})

	t.Run("名称检查不区分大小写", func(t *testing.T) {
		_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "Work"})
		require.NoError(t, err)

		_, err = svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "work"})
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrFolderAlreadyExists, appErr.Code)
	})

	t.Run("空名称返回参数错误", func(t *testing.T) {
		_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "   "})
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrInvalidParams, appErr.Code)
	})
}

// TestCreateFolderReusesExistingLabel 测试Gmail标签名称冲突时复用已有标签
func TestCreateFolderReusesExistingLabel(t *testing.T) {
	svc, client, _, user := setupFolderService(t)
	ctx := context.Background()

	// Gmail侧已存在同名标签（例如用户在Gmail手动创建过）
	client.labels["归档"] = "label-existing"

	folder, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "归档"})
	require.NoError(t, err)
	assert.Equal(t, "label-existing", folder.GmailLabelID)
	// 没有新建标签
	assert.NotContains(t, client.created, "归档")
}

// TestUpdateFolder 测试更新文件夹
func TestUpdateFolder(t *testing.T) {
	svc, client, _, user := setupFolderService(t)
	ctx := context.Background()

	folder, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "旧名称"})
	require.NoError(t, err)

	t.Run("重命名同步更新Gmail标签", func(t *testing.T) {
		newName := "新名称"
		updated, err := svc.UpdateFolder(ctx, user, folder.FolderID, &UpdateFolderRequest{Name: &newName})
		require.NoError(t, err)
		assert.Equal(t, "新名称", updated.Name)
		assert.Equal(t, "新名称", client.renamed[folder.GmailLabelID])
	})

	t.Run("更新规则不触碰Gmail", func(t *testing.T) {
		keywords := "report,周报"
		renameCount := len(client.renamed)
		updated, err := svc.UpdateFolder(ctx, user, folder.FolderID, &UpdateFolderRequest{MatchKeywords: &keywords})
		require.NoError(t, err)
		assert.Equal(t, keywords, updated.MatchKeywords)
		assert.Len(t, client.renamed, renameCount)
	})

	t.Run("重命名为已有名称返回冲突", func(t *testing.T) {
		_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "占用名"})
		require.NoError(t, err)

		taken := "占用名"
		_, err = svc.UpdateFolder(ctx, user, folder.FolderID, &UpdateFolderRequest{Name: &taken})
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrFolderAlreadyExists, appErr.Code)
	})
}

// TestDeleteFolder 测试删除文件夹
func TestDeleteFolder(t *testing.T) {
	svc, client, db, user := setupFolderService(t)
	ctx := context.Background()

	t.Run("删除空文件夹", func(t *testing.T) {
		folder, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "临时"})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteFolder(ctx, user, folder.FolderID, false))
		assert.Contains(t, client.deleted, folder.GmailLabelID)

		_, err = svc.GetFolder(user, folder.FolderID)
		require.Error(t, err)
	})

	t.Run("有邮件的文件夹需要强制删除", func(t *testing.T) {
		folder, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "带邮件"})
		require.NoError(t, err)

		msg := &database.ProcessedMessage{
			UserID:         user.ID,
			FolderID:       &folder.ID,
			GmailMessageID: "msg-001",
			Subject:        "测试邮件",
		}
		require.NoError(t, db.Create(msg).Error)

		// 不带force时返回冲突
		err = svc.DeleteFolder(ctx, user, folder.FolderID, false)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrFolderHasMessages, appErr.Code)

		// 带force删除成功，邮件记录保留但解除归属
		require.NoError(t, svc.DeleteFolder(ctx, user, folder.FolderID, true))

		var kept database.ProcessedMessage
		require.NoError(t, db.Where("gmail_message_id = ?", "msg-001").First(&kept).Error)
		assert.Nil(t, kept.FolderID)
	})

	t.Run("删除不存在的文件夹返回404", func(t *testing.T) {
		err := svc.DeleteFolder(ctx, user, uuid.New().String(), false)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrFolderNotFound, appErr.Code)
	})
}

// TestListFolders 测试文件夹列表查询
func TestListFolders(t *testing.T) {
	svc, _, _, user := setupFolderService(t)
	ctx := context.Background()

	names := []string{"工作", "账单", "订阅", "旅行"}
	for i, name := range names {
		_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: name, SortOrder: i})
		require.NoError(t, err)
	}

	t.Run("分页查询", func(t *testing.T) {
		folders, total, err := svc.ListFolders(user, &ListFoldersQuery{Page: 1, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, folders, 3)
		assert.Equal(t, "工作", folders[0].Name)
	})

	t.Run("关键词过滤", func(t *testing.T) {
		folders, total, err := svc.ListFolders(user, &ListFoldersQuery{Page: 1, PageSize: 10, Keyword: "账"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "账单", folders[0].Name)
	})

	t.Run("其他用户的文件夹不可见", func(t *testing.T) {
		other := &database.User{UserID: uuid.New().String(), Email: "other@gmail.com"}

		folders, total, err := svc.ListFolders(other, &ListFoldersQuery{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, folders)
	})
}

// TestBatchCreateFolders 测试批量创建文件夹
func TestBatchCreateFolders(t *testing.T) {
	svc, _, _, user := setupFolderService(t)
	ctx := context.Background()

	_, err := svc.CreateFolder(ctx, user, &CreateFolderRequest{Name: "已存在"})
	require.NoError(t, err)

	created, failed, err := svc.BatchCreateFolders(ctx, user, &BatchCreateRequest{
		Folders: []CreateFolderRequest{
			{Name: "新建一"},
			{Name: "已存在"},
			{Name: "新建二"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, failed, 1)
	assert.Contains(t, failed[0], "已存在")
}

// TestBootstrapDefaults 测试默认文件夹创建
func TestBootstrapDefaults(t *testing.T) {
	svc, client, _, user := setupFolderService(t)
	ctx := context.Background()

	t.Run("首次创建默认文件夹集", func(t *testing.T) {
		folders, err := svc.BootstrapDefaults(ctx, user)
		require.NoError(t, err)
		require.Len(t, folders, 3)

		names := make([]string, 0, len(folders))
		for _, f := range folders {
			names = append(names, f.Name)
			assert.True(t, f.IsDefault)
			assert.NotEmpty(t, f.GmailLabelID)
		}
		assert.ElementsMatch(t, []string{"工作", "账单", "订阅"}, names)
		assert.Len(t, client.created, 3)
	})

	t.Run("已有文件夹时不重复创建", func(t *testing.T) {
		folders, err := svc.BootstrapDefaults(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, folders)

		count, err := svc.CountFolders(user)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}
