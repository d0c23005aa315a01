// Package user 提供用户服务的单元测试
// 测试入驻流程的前置条件检查和默认文件夹创建
package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	folderservice "github.com/weiwangfds/mailagent/internal/service/folder"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubGmailClient 入驻测试用的Gmail客户端桩实现
// EnsureLabel按名称返回固定格式的标签ID
type stubGmailClient struct{}

func (stubGmailClient) EnsureLabel(ctx context.Context, name string) (string, error) {
	return "label-" + name, nil
}
func (stubGmailClient) RenameLabel(ctx context.Context, labelID, newName string) error { return nil }
func (stubGmailClient) DeleteLabel(ctx context.Context, labelID string) error          { return nil }
func (stubGmailClient) ListNewMessages(ctx context.Context, query string, max int64) ([]gmail.MessageMeta, error) {
	return nil, nil
}
func (stubGmailClient) ApplyLabel(ctx context.Context, messageID, labelID string) error { return nil }
func (stubGmailClient) ListAttachments(ctx context.Context, messageID string) ([]gmail.AttachmentMeta, error) {
	return nil, nil
}
func (stubGmailClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return nil, nil
}

type stubGmailFactory struct{}

func (stubGmailFactory) ForUser(ctx context.Context, user *database.User) (gmail.Client, error) {
	return stubGmailClient{}, nil
}

// setupUserService 设置测试服务
func setupUserService(t *testing.T) (UserService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateMailTables(db))

	folders := folderservice.NewFolderService(db, stubGmailFactory{})
	return NewUserService(db, folders), db
}

// createUser 创建测试用户，connected控制是否写入OAuth令牌
func createUser(t *testing.T, db *gorm.DB, email string, connected bool) *database.User {
	user := &database.User{
		UserID: uuid.New().String(),
		Email:  email,
	}
	require.NoError(t, db.Create(user).Error)

	if connected {
		token := &database.OAuthToken{
			UserID:       user.ID,
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			Expiry:       time.Now().Add(time.Hour),
		}
		require.NoError(t, db.Create(token).Error)
	}
	return user
}

// TestCompleteOnboarding 测试完成入驻流程
func TestCompleteOnboarding(t *testing.T) {
	svc, db := setupUserService(t)
	ctx := context.Background()

	t.Run("未连接Gmail不可入驻", func(t *testing.T) {
		user := createUser(t, db, "nogmail@gmail.com", false)
		_, err := svc.CompleteOnboarding(ctx, user)
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrGmailNotConnected, appErr.Code)
	})

	t.Run("入驻创建三个默认文件夹", func(t *testing.T) {
		user := createUser(t, db, "fresh@gmail.com", true)
		result, err := svc.CompleteOnboarding(ctx, user)
		require.NoError(t, err)

		assert.True(t, result.User.OnboardingCompleted)
		assert.Equal(t, int64(3), result.FolderCount)
		require.Len(t, result.CreatedFolders, 3)

		names := make([]string, 0, 3)
		for _, f := range result.CreatedFolders {
			names = append(names, f.Name)
			assert.True(t, f.IsDefault)
		}
		assert.ElementsMatch(t, []string{"工作", "账单", "订阅"}, names)

		// 入驻标志已持久化
		var fresh database.User
		require.NoError(t, db.First(&fresh, user.ID).Error)
		assert.True(t, fresh.OnboardingCompleted)
	})

	t.Run("已有文件夹时不创建默认集", func(t *testing.T) {
		user := createUser(t, db, "hasfolders@gmail.com", true)
		folder := &database.Folder{
			FolderID: uuid.New().String(),
			OwnerID:  user.ID,
			Name:     "自建文件夹",
		}
		require.NoError(t, db.Create(folder).Error)

		result, err := svc.CompleteOnboarding(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, result.CreatedFolders)
		assert.Equal(t, int64(1), result.FolderCount)
		assert.True(t, result.User.OnboardingCompleted)
	})

	t.Run("重复调用幂等", func(t *testing.T) {
		user := createUser(t, db, "repeat@gmail.com", true)
		first, err := svc.CompleteOnboarding(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(3), first.FolderCount)

		second, err := svc.CompleteOnboarding(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, second.CreatedFolders)
		assert.Equal(t, int64(3), second.FolderCount)
	})
}

// TestUpdateProfile 测试更新用户资料
func TestUpdateProfile(t *testing.T) {
	svc, db := setupUserService(t)

	user := createUser(t, db, "profile@gmail.com", false)
	name := "新名字"
	updated, err := svc.UpdateProfile(user, &UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "新名字", updated.Name)

	var fresh database.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, "新名字", fresh.Name)
}
