// Package dashboard 提供仪表盘服务的单元测试
// 测试统计聚合和邮件记录列表查询
package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupDashboard 设置测试环境
func setupDashboard(t *testing.T) (DashboardService, *gorm.DB, *database.User) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateMailTables(db))

	user := &database.User{
		UserID:              uuid.New().String(),
		Email:               "tester@gmail.com",
		OnboardingCompleted: true,
	}
	require.NoError(t, db.Create(user).Error)

	return NewDashboardService(db), db, user
}

// seedMessages 写入测试邮件记录
func seedMessages(t *testing.T, db *gorm.DB, user *database.User, folder *database.Folder) {
	now := time.Now()
	messages := []database.ProcessedMessage{
		{UserID: user.ID, FolderID: &folder.ID, GmailMessageID: "m1", Subject: "今日账单", Sender: "billing@x.com", ProcessedAt: now},
		{UserID: user.ID, FolderID: &folder.ID, GmailMessageID: "m2", Subject: "上周报告", Sender: "report@x.com", ProcessedAt: now.Add(-48 * time.Hour)},
		{UserID: user.ID, GmailMessageID: "m3", Subject: "未分类", Sender: "other@x.com", ProcessedAt: now},
	}
	for i := range messages {
		require.NoError(t, db.Create(&messages[i]).Error)
	}
}

// TestStats 测试仪表盘统计聚合
func TestStats(t *testing.T) {
	svc, db, user := setupDashboard(t)

	folder := &database.Folder{
		FolderID:     uuid.New().String(),
		OwnerID:      user.ID,
		Name:         "账单",
		MessageCount: 2,
	}
	require.NoError(t, db.Create(folder).Error)
	seedMessages(t, db, user, folder)

	// 一条OAuth令牌表示Gmail已连接
	require.NoError(t, db.Create(&database.OAuthToken{
		UserID:      user.ID,
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	}).Error)

	// 一条失败通知日志
	require.NoError(t, db.Create(&database.NotificationLog{
		UserID: user.ID,
		ChatID: 1,
		Status: database.NotificationStatusFailed,
		SentAt: time.Now(),
	}).Error)

	stats, err := svc.Stats(user)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalFolders)
	assert.Equal(t, int64(3), stats.TotalMessages)
	assert.Equal(t, int64(2), stats.MessagesToday)
	assert.Equal(t, int64(1), stats.UnclassifiedCount)
	assert.Equal(t, int64(1), stats.NotificationsFailed)
	assert.True(t, stats.GmailConnected)
	assert.False(t, stats.TelegramLinked)
	assert.True(t, stats.OnboardingCompleted)
	assert.NotNil(t, stats.LastProcessedAt)

	require.Len(t, stats.Folders, 1)
	assert.Equal(t, "账单", stats.Folders[0].Name)
	assert.Equal(t, int64(2), stats.Folders[0].MessageCount)
}

// TestStatsEmptyUser 测试新用户的空统计
func TestStatsEmptyUser(t *testing.T) {
	svc, _, user := setupDashboard(t)

	stats, err := svc.Stats(user)
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalFolders)
	assert.Equal(t, int64(0), stats.TotalMessages)
	assert.False(t, stats.GmailConnected)
	assert.Nil(t, stats.LastProcessedAt)
	assert.Empty(t, stats.Folders)
}

// TestListMessages 测试邮件记录列表查询
func TestListMessages(t *testing.T) {
	svc, db, user := setupDashboard(t)

	folder := &database.Folder{
		FolderID: uuid.New().String(),
		OwnerID:  user.ID,
		Name:     "账单",
	}
	require.NoError(t, db.Create(folder).Error)
	seedMessages(t, db, user, folder)

	t.Run("分页查询按处理时间倒序", func(t *testing.T) {
		messages, total, err := svc.ListMessages(user, &ListMessagesQuery{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, messages, 2)
		// m2的处理时间最早，不在第一页
		for _, m := range messages {
			assert.NotEqual(t, "m2", m.GmailMessageID)
		}
	})

	t.Run("按文件夹过滤", func(t *testing.T) {
		messages, total, err := svc.ListMessages(user, &ListMessagesQuery{
			Page: 1, PageSize: 10, FolderID: folder.FolderID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, m := range messages {
			require.NotNil(t, m.FolderID)
			assert.Equal(t, folder.ID, *m.FolderID)
		}
	})

	t.Run("关键词搜索", func(t *testing.T) {
		messages, total, err := svc.ListMessages(user, &ListMessagesQuery{
			Page: 1, PageSize: 10, Keyword: "账单",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "m1", messages[0].GmailMessageID)
	})

	t.Run("不存在的文件夹返回404", func(t *testing.T) {
		_, _, err := svc.ListMessages(user, &ListMessagesQuery{
			Page: 1, PageSize: 10, FolderID: uuid.New().String(),
		})
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrFolderNotFound, appErr.Code)
	})
}
