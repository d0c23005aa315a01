// Package gmail 提供Gmail接口的封装
// 包含标签管理、邮件查询和附件下载等核心功能
// 通过接口抽象Gmail操作，便于测试时替换为内存实现
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"golang.org/x/oauth2"
)

// MessageMeta 邮件元数据
type MessageMeta struct {
	ID      string `json:"id"`      // Gmail邮件ID
	Subject string `json:"subject"` // 邮件主题
	Sender  string `json:"sender"`  // 发件人地址
	Snippet string `json:"snippet"` // 邮件摘要片段
}

// AttachmentMeta 附件元数据
type AttachmentMeta struct {
	AttachmentID string `json:"attachment_id"` // 附件ID
	FileName     string `json:"file_name"`     // 附件文件名
	MimeType     string `json:"mime_type"`     // 附件MIME类型
	Size         int64  `json:"size"`          // 附件大小（字节）
}

// Client Gmail客户端接口
// 定义了邮件代理需要的所有Gmail操作
type Client interface {
	// EnsureLabel 确保指定名称的标签存在，返回标签ID
	// 标签名称冲突（409）时复用已有标签的ID，不作为失败处理
	EnsureLabel(ctx context.Context, name string) (string, error)

	// RenameLabel 重命名标签
	RenameLabel(ctx context.Context, labelID, newName string) error

	// DeleteLabel 删除标签
	// 标签已不存在（404）时不作为失败处理
	DeleteLabel(ctx context.Context, labelID string) error

	// ListNewMessages 按查询条件列出邮件ID及元数据
	// query使用Gmail搜索语法，如 "in:inbox is:unread"
	ListNewMessages(ctx context.Context, query string, max int64) ([]MessageMeta, error)

	// ApplyLabel 为指定邮件添加标签
	ApplyLabel(ctx context.Context, messageID, labelID string) error

	// ListAttachments 列出指定邮件的附件元数据
	ListAttachments(ctx context.Context, messageID string) ([]AttachmentMeta, error)

	// GetAttachment 下载附件内容
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// apiClient 基于Gmail REST API的客户端实现
type apiClient struct {
	svc *gmail.Service
}

// NewClient 基于OAuth令牌源创建Gmail客户端
// 参数:
//   ctx - 上下文
//   ts - OAuth令牌源，过期令牌由令牌源自动刷新
// 返回:
//   Client - Gmail客户端接口实例
//   error - 创建失败时返回错误
func NewClient(ctx context.Context, ts oauth2.TokenSource) (Client, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}
	return &apiClient{svc: svc}, nil
}

// EnsureLabel 确保指定名称的标签存在
// Gmail在标签名称重复时返回409，此时列出已有标签并复用匹配的标签ID
func (c *apiClient) EnsureLabel(ctx context.Context, name string) (string, error) {
	label, err := c.svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err == nil {
		return label.Id, nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusConflict {
		return "", apperrors.WrapCode(apperrors.ErrGmailLabelCreateFailed, err)
	}

	// 名称冲突，查找并复用已有标签
	logger.Infof("[Gmail] 标签名称冲突，复用已有标签: %s", name)
	existing, err := c.findLabelByName(ctx, name)
	if err != nil {
		return "", err
	}
	if existing == "" {
		// 冲突但列表中找不到同名标签，视为创建失败
		return "", apperrors.WrapCode(apperrors.ErrGmailLabelCreateFailed, gerr)
	}
	return existing, nil
}

// findLabelByName 按名称查找标签ID（不区分大小写），未找到时返回空字符串
func (c *apiClient) findLabelByName(ctx context.Context, name string) (string, error) {
	resp, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}
	for _, l := range resp.Labels {
		if strings.EqualFold(l.Name, name) {
			return l.Id, nil
		}
	}
	return "", nil
}

// RenameLabel 重命名标签
func (c *apiClient) RenameLabel(ctx context.Context, labelID, newName string) error {
	_, err := c.svc.Users.Labels.Patch("me", labelID, &gmail.Label{
		Name: newName,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return apperrors.WrapCode(apperrors.ErrGmailLabelNotFound, err)
		}
		return apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}
	return nil
}

// DeleteLabel 删除标签，标签已不存在时静默成功
func (c *apiClient) DeleteLabel(ctx context.Context, labelID string) error {
	err := c.svc.Users.Labels.Delete("me", labelID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			logger.Infof("[Gmail] 标签已不存在，跳过删除: %s", labelID)
			return nil
		}
		return apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}
	return nil
}

// ListNewMessages 按查询条件列出邮件元数据
func (c *apiClient) ListNewMessages(ctx context.Context, query string, max int64) ([]MessageMeta, error) {
	if max <= 0 {
		max = 20
	}

	resp, err := c.svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}

	metas := make([]MessageMeta, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := c.svc.Users.Messages.Get("me", m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).Do()
		if err != nil {
			// 单封邮件获取失败不影响其余邮件
			logger.Warnf("[Gmail] 获取邮件元数据失败: %s, 错误: %v", m.Id, err)
			continue
		}

		meta := MessageMeta{
			ID:      msg.Id,
			Snippet: msg.Snippet,
		}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				switch h.Name {
				case "Subject":
					meta.Subject = h.Value
				case "From":
					meta.Sender = h.Value
				}
			}
		}
		metas = append(metas, meta)
	}

	return metas, nil
}

// ApplyLabel 为指定邮件添加标签
func (c *apiClient) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	_, err := c.svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}
	return nil
}

// ListAttachments 列出指定邮件的附件元数据
func (c *apiClient) ListAttachments(ctx context.Context, messageID string) ([]AttachmentMeta, error) {
	msg, err := c.svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}

	var attachments []AttachmentMeta
	if msg.Payload != nil {
		collectAttachments(msg.Payload, &attachments)
	}
	return attachments, nil
}

// collectAttachments 递归收集邮件各部分中的附件
func collectAttachments(part *gmail.MessagePart, out *[]AttachmentMeta) {
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		*out = append(*out, AttachmentMeta{
			AttachmentID: part.Body.AttachmentId,
			FileName:     part.Filename,
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
		})
	}
	for _, child := range part.Parts {
		collectAttachments(child, out)
	}
}

// GetAttachment 下载并解码附件内容
func (c *apiClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrGmailAPIFailed, err)
	}

	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("附件内容解码失败: %w", err)
	}
	return data, nil
}
