// Package agent 提供邮件代理服务的单元测试
// 测试邮件分类规则、去重和处理流程
package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/config"
	"github.com/weiwangfds/mailagent/internal/database"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeClient 邮件代理测试用的Gmail客户端实现
type fakeClient struct {
	messages []gmail.MessageMeta
	applied  map[string][]string
}

func (f *fakeClient) EnsureLabel(ctx context.Context, name string) (string, error) {
	return "label-" + name, nil
}
func (f *fakeClient) RenameLabel(ctx context.Context, labelID, newName string) error { return nil }
func (f *fakeClient) DeleteLabel(ctx context.Context, labelID string) error          { return nil }
func (f *fakeClient) ListNewMessages(ctx context.Context, query string, max int64) ([]gmail.MessageMeta, error) {
	if int64(len(f.messages)) > max {
		return f.messages[:max], nil
	}
	return f.messages, nil
}
func (f *fakeClient) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	if f.applied == nil {
		f.applied = make(map[string][]string)
	}
	f.applied[messageID] = append(f.applied[messageID], labelID)
	return nil
}
func (f *fakeClient) ListAttachments(ctx context.Context, messageID string) ([]gmail.AttachmentMeta, error) {
	return nil, nil
}
func (f *fakeClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return nil, nil
}

type fakeFactory struct {
	client *fakeClient
}

func (f *fakeFactory) ForUser(ctx context.Context, user *database.User) (gmail.Client, error) {
	return f.client, nil
}

// fakeNotifier 记录推送调用的通知器实现
type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) NotifyMessage(user *database.User, msg *database.ProcessedMessage, folderName string) error {
	f.notified = append(f.notified, msg.GmailMessageID)
	return nil
}

// setupAgent 设置测试环境
func setupAgent(t *testing.T, client *fakeClient, notifier *fakeNotifier) (AgentService, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateMailTables(db))

	cfg := config.AgentConfig{Enabled: true, PollInterval: 60, BatchSize: 20}
	svc := NewAgentService(db, cfg, &fakeFactory{client: client}, notifier, nil)
	return svc, db
}

// createOnboardedUser 创建已完成入驻的测试用户
func createOnboardedUser(t *testing.T, db *gorm.DB, linked bool) *database.User {
	user := &database.User{
		UserID:              uuid.New().String(),
		Email:               uuid.New().String()[:8] + "@gmail.com",
		OnboardingCompleted: true,
	}
	if linked {
		tgID := int64(100)
		chatID := int64(200)
		user.TelegramUserID = &tgID
		user.TelegramChatID = &chatID
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createRuleFolder 创建带匹配规则的文件夹
func createRuleFolder(t *testing.T, db *gorm.DB, user *database.User, name, senders, keywords string, order int) *database.Folder {
	folder := &database.Folder{
		FolderID:      uuid.New().String(),
		OwnerID:       user.ID,
		Name:          name,
		GmailLabelID:  "label-" + name,
		SortOrder:     order,
		MatchSenders:  senders,
		MatchKeywords: keywords,
	}
	require.NoError(t, db.Create(folder).Error)
	return folder
}

// TestClassify 测试分类规则匹配
func TestClassify(t *testing.T) {
	folders := []database.Folder{
		{Name: "账单", SortOrder: 0, MatchSenders: "billing@,invoice@", MatchKeywords: "账单,invoice"},
		{Name: "订阅", SortOrder: 1, MatchKeywords: "newsletter,unsubscribe"},
		{Name: "无规则", SortOrder: 2},
	}

	t.Run("发件人规则匹配", func(t *testing.T) {
		matched := classify(folders, gmail.MessageMeta{Sender: "Billing <billing@stripe.com>", Subject: "Receipt"})
		require.NotNil(t, matched)
		assert.Equal(t, "账单", matched.Name)
	})

	t.Run("关键词规则匹配不区分大小写", func(t *testing.T) {
		matched := classify(folders, gmail.MessageMeta{Sender: "news@site.com", Subject: "Weekly NEWSLETTER"})
		require.NotNil(t, matched)
		assert.Equal(t, "订阅", matched.Name)
	})

	t.Run("按优先级返回第一个命中", func(t *testing.T) {
		// 同时命中账单发件人和订阅关键词，低sort_order优先
		matched := classify(folders, gmail.MessageMeta{Sender: "invoice@shop.com", Subject: "unsubscribe info"})
		require.NotNil(t, matched)
		assert.Equal(t, "账单", matched.Name)
	})

	t.Run("无命中返回nil", func(t *testing.T) {
		matched := classify(folders, gmail.MessageMeta{Sender: "friend@gmail.com", Subject: "hello"})
		assert.Nil(t, matched)
	})

	t.Run("空规则不匹配任何邮件", func(t *testing.T) {
		matched := classify(folders[2:], gmail.MessageMeta{Sender: "any@x.com", Subject: "any"})
		assert.Nil(t, matched)
	})
}

// TestProcessUser 测试单用户邮件处理
func TestProcessUser(t *testing.T) {
	client := &fakeClient{
		messages: []gmail.MessageMeta{
			{ID: "m1", Sender: "billing@stripe.com", Subject: "三月账单", Snippet: "您的账单已生成"},
			{ID: "m2", Sender: "friend@gmail.com", Subject: "周末聚餐"},
		},
	}
	notifier := &fakeNotifier{}
	svc, db := setupAgent(t, client, notifier)

	user := createOnboardedUser(t, db, true)
	folder := createRuleFolder(t, db, user, "账单", "billing@", "账单", 0)

	count, err := svc.ProcessUser(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("命中规则的邮件归类并打标签", func(t *testing.T) {
		var msg database.ProcessedMessage
		require.NoError(t, db.Where("gmail_message_id = ?", "m1").First(&msg).Error)
		require.NotNil(t, msg.FolderID)
		assert.Equal(t, folder.ID, *msg.FolderID)
		assert.True(t, msg.Labeled)
		assert.True(t, msg.Notified)
		assert.Contains(t, client.applied["m1"], folder.GmailLabelID)
	})

	t.Run("未命中规则的邮件仅记录", func(t *testing.T) {
		var msg database.ProcessedMessage
		require.NoError(t, db.Where("gmail_message_id = ?", "m2").First(&msg).Error)
		assert.Nil(t, msg.FolderID)
		assert.False(t, msg.Labeled)
		assert.False(t, msg.Notified)
	})

	t.Run("文件夹计数更新", func(t *testing.T) {
		var fresh database.Folder
		require.NoError(t, db.First(&fresh, folder.ID).Error)
		assert.Equal(t, int64(1), fresh.MessageCount)
	})

	t.Run("仅归类邮件推送通知", func(t *testing.T) {
		assert.Equal(t, []string{"m1"}, notifier.notified)
	})

	t.Run("同一邮件不重复处理", func(t *testing.T) {
		count, err := svc.ProcessUser(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		var total int64
		require.NoError(t, db.Model(&database.ProcessedMessage{}).Count(&total).Error)
		assert.Equal(t, int64(2), total)
	})

	t.Run("同步时间已更新", func(t *testing.T) {
		var fresh database.User
		require.NoError(t, db.First(&fresh, user.ID).Error)
		assert.NotNil(t, fresh.LastSyncedAt)
	})
}

// TestRunOnce 测试全量轮询
func TestRunOnce(t *testing.T) {
	client := &fakeClient{
		messages: []gmail.MessageMeta{
			{ID: "m1", Sender: "billing@stripe.com", Subject: "invoice"},
		},
	}
	svc, db := setupAgent(t, client, nil)

	// 已入驻用户被处理，未入驻用户被跳过
	onboarded := createOnboardedUser(t, db, false)
	pending := &database.User{
		UserID: uuid.New().String(),
		Email:  "pending@gmail.com",
	}
	require.NoError(t, db.Create(pending).Error)

	require.NoError(t, svc.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&database.ProcessedMessage{}).Where("user_id = ?", onboarded.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.Model(&database.ProcessedMessage{}).Where("user_id = ?", pending.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

// TestAgentLifecycle 测试轮询生命周期
func TestAgentLifecycle(t *testing.T) {
	svc, _ := setupAgent(t, &fakeClient{}, nil)

	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	// 重复启动返回错误
	require.Error(t, svc.Start())

	svc.Stop()
	assert.False(t, svc.IsRunning())

	// 重复停止无副作用
	svc.Stop()
}
