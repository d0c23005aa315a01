// Package telegram 提供Telegram关联服务的单元测试
// 测试关联码的签发、核销、过期和解除关联等核心功能
package telegram

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

// setupTestDB 设置测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateMailTables(db))
	return db
}

// createTestUser 创建测试用户
func createTestUser(t *testing.T, db *gorm.DB) *database.User {
	user := &database.User{
		UserID: uuid.New().String(),
		Email:  "tester@gmail.com",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// TestIssueCode 测试关联码签发
func TestIssueCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db, "mailagent_bot")
	user := createTestUser(t, db)

	t.Run("签发关联码", func(t *testing.T) {
		result, err := svc.IssueCode(user)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Code)
		assert.True(t, result.ExpiresAt.After(time.Now()))
		assert.Contains(t, result.BotURL, "t.me/mailagent_bot?start=")
	})

	t.Run("重复签发作废旧码", func(t *testing.T) {
		first, err := svc.IssueCode(user)
		require.NoError(t, err)
		second, err := svc.IssueCode(user)
		require.NoError(t, err)
		assert.NotEqual(t, first.Code, second.Code)

		// 旧码已不可用
		_, err = svc.ConsumeCode(first.Code, 1001, 2001)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramCodeInvalid, appErr.Code)
	})

	t.Run("已关联用户不可再签发", func(t *testing.T) {
		linked := createLinkedUser(t, db)
		_, err := svc.IssueCode(linked)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramAlreadyLinked, appErr.Code)
	})
}

// createLinkedUser 创建已关联Telegram的测试用户
func createLinkedUser(t *testing.T, db *gorm.DB) *database.User {
	tgID := int64(9001)
	chatID := int64(9002)
	now := time.Now()
	user := &database.User{
		UserID:           uuid.New().String(),
		Email:            uuid.New().String()[:8] + "@gmail.com",
		TelegramUserID:   &tgID,
		TelegramChatID:   &chatID,
		TelegramLinkedAt: &now,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// TestConsumeCode 测试关联码核销
func TestConsumeCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db, "")

	t.Run("核销成功完成关联", func(t *testing.T) {
		user := createTestUser(t, db)
		issued, err := svc.IssueCode(user)
		require.NoError(t, err)

		linked, err := svc.ConsumeCode(issued.Code, 1234, 5678)
		require.NoError(t, err)
		assert.Equal(t, user.ID, linked.ID)
		require.NotNil(t, linked.TelegramUserID)
		assert.Equal(t, int64(1234), *linked.TelegramUserID)
		assert.Equal(t, int64(5678), *linked.TelegramChatID)
		assert.True(t, linked.TelegramLinked())
	})

	t.Run("关联码一次性使用", func(t *testing.T) {
		user := &database.User{UserID: uuid.New().String(), Email: "single@gmail.com"}
		require.NoError(t, db.Create(user).Error)
		issued, err := svc.IssueCode(user)
		require.NoError(t, err)

		_, err = svc.ConsumeCode(issued.Code, 1, 2)
		require.NoError(t, err)

		_, err = svc.ConsumeCode(issued.Code, 3, 4)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramCodeInvalid, appErr.Code)
	})

	t.Run("过期关联码返回过期错误", func(t *testing.T) {
		user := &database.User{UserID: uuid.New().String(), Email: "expired@gmail.com"}
		require.NoError(t, db.Create(user).Error)

		code := &database.TelegramLinkCode{
			Code:      uuid.New().String(),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, db.Create(code).Error)

		_, err := svc.ConsumeCode(code.Code, 1, 2)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramCodeExpired, appErr.Code)
	})

	t.Run("无效关联码", func(t *testing.T) {
		_, err := svc.ConsumeCode("not-a-code", 1, 2)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramCodeInvalid, appErr.Code)
	})
}

// TestUnlink 测试解除关联
func TestUnlink(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db, "")

	t.Run("解除已关联账户", func(t *testing.T) {
		user := createLinkedUser(t, db)
		require.NoError(t, svc.Unlink(user))
		assert.False(t, user.TelegramLinked())

		var fresh database.User
		require.NoError(t, db.First(&fresh, user.ID).Error)
		assert.Nil(t, fresh.TelegramUserID)
		assert.Nil(t, fresh.TelegramChatID)
	})

	t.Run("未关联账户解除返回错误", func(t *testing.T) {
		user := createTestUser(t, db)
		err := svc.Unlink(user)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrTelegramNotLinked, appErr.Code)
	})
}

// TestStatus 测试关联状态查询
func TestStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db, "")

	linked := createLinkedUser(t, db)
	status := svc.Status(linked)
	assert.True(t, status.Linked)
	assert.NotNil(t, status.TelegramUserID)

	plain := createTestUser(t, db)
	status = svc.Status(plain)
	assert.False(t, status.Linked)
	assert.Nil(t, status.TelegramUserID)
}
