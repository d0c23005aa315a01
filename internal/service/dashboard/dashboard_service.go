// Package dashboard 提供仪表盘统计相关的业务逻辑服务
// 聚合文件夹、邮件处理和通知投递数据，供仪表盘一次性拉取
package dashboard

import (
	"time"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"gorm.io/gorm"
)

// FolderStat 单个文件夹的统计信息
type FolderStat struct {
	FolderID     string `json:"folder_id"`     // 文件夹业务ID
	Name         string `json:"name"`          // 文件夹名称
	Color        string `json:"color"`         // 文件夹颜色
	MessageCount int64  `json:"message_count"` // 已归类邮件数量
}

// StatsResult 仪表盘统计结果
type StatsResult struct {
	TotalFolders        int64        `json:"total_folders"`          // 文件夹总数
	TotalMessages       int64        `json:"total_messages"`         // 已处理邮件总数
	MessagesToday       int64        `json:"messages_today"`         // 今日处理邮件数
	UnclassifiedCount   int64        `json:"unclassified_count"`     // 未匹配任何规则的邮件数
	NotificationsFailed int64        `json:"notifications_failed"`   // 通知投递失败次数
	GmailConnected      bool         `json:"gmail_connected"`        // Gmail账户是否已连接
	TelegramLinked      bool         `json:"telegram_linked"`        // Telegram账户是否已关联
	OnboardingCompleted bool         `json:"onboarding_completed"`   // 入驻流程是否完成
	LastProcessedAt     *time.Time   `json:"last_processed_at"`      // 最近一次邮件处理时间
	MemberSince         time.Time    `json:"member_since"`           // 用户创建时间
	Folders             []FolderStat `json:"folders"`                // 各文件夹统计明细
}

// ListMessagesQuery 邮件记录列表查询参数
type ListMessagesQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`               // 页码
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"` // 每页数量
	FolderID string `form:"folder_id"`                                    // 按文件夹业务ID过滤
	Keyword  string `form:"keyword"`                                      // 主题或发件人模糊搜索
}

// DashboardService 仪表盘服务接口
type DashboardService interface {
	// Stats 聚合用户的仪表盘统计数据
	Stats(user *database.User) (*StatsResult, error)

	// ListMessages 分页查询用户的已处理邮件记录
	ListMessages(user *database.User, query *ListMessagesQuery) ([]*database.ProcessedMessage, int64, error)
}

// dashboardService 仪表盘服务实现
type dashboardService struct {
	db *gorm.DB
}

// NewDashboardService 创建仪表盘服务实例
func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

// Stats 聚合用户的仪表盘统计数据
func (s *dashboardService) Stats(user *database.User) (*StatsResult, error) {
	result := &StatsResult{
		TelegramLinked:      user.TelegramLinked(),
		OnboardingCompleted: user.OnboardingCompleted,
		MemberSince:         user.CreatedAt,
		Folders:             []FolderStat{},
	}

	// Gmail连接状态
	var tokenCount int64
	if err := s.db.Model(&database.OAuthToken{}).Where("user_id = ?", user.ID).Count(&tokenCount).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	result.GmailConnected = tokenCount > 0

	// 文件夹明细，按排序字段排列
	var folders []database.Folder
	if err := s.db.Where("owner_id = ?", user.ID).Order("sort_order ASC").Find(&folders).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	result.TotalFolders = int64(len(folders))
	for _, f := range folders {
		result.Folders = append(result.Folders, FolderStat{
			FolderID:     f.FolderID,
			Name:         f.Name,
			Color:        f.Color,
			MessageCount: f.MessageCount,
		})
	}

	// 邮件处理统计
	messages := s.db.Model(&database.ProcessedMessage{}).Where("user_id = ?", user.ID)
	if err := messages.Count(&result.TotalMessages).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	todayStart := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&database.ProcessedMessage{}).
		Where("user_id = ? AND processed_at >= ?", user.ID, todayStart).
		Count(&result.MessagesToday).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	if err := s.db.Model(&database.ProcessedMessage{}).
		Where("user_id = ? AND folder_id IS NULL", user.ID).
		Count(&result.UnclassifiedCount).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	// 最近处理时间
	var latest database.ProcessedMessage
	err := s.db.Where("user_id = ?", user.ID).Order("processed_at DESC").First(&latest).Error
	if err == nil {
		result.LastProcessedAt = &latest.ProcessedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	// 通知投递失败统计
	if err := s.db.Model(&database.NotificationLog{}).
		Where("user_id = ? AND status = ?", user.ID, database.NotificationStatusFailed).
		Count(&result.NotificationsFailed).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	return result, nil
}

// ListMessages 分页查询用户的已处理邮件记录
func (s *dashboardService) ListMessages(user *database.User, query *ListMessagesQuery) ([]*database.ProcessedMessage, int64, error) {
	db := s.db.Model(&database.ProcessedMessage{}).Where("user_id = ?", user.ID)

	if query.FolderID != "" {
		var f database.Folder
		err := s.db.Where("folder_id = ? AND owner_id = ?", query.FolderID, user.ID).First(&f).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, 0, apperrors.ErrFolderNotFoundError
			}
			return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}
		db = db.Where("folder_id = ?", f.ID)
	}
	if query.Keyword != "" {
		like := "%" + query.Keyword + "%"
		db = db.Where("subject LIKE ? OR sender LIKE ?", like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	var messages []*database.ProcessedMessage
	err := db.Preload("Folder").Order("processed_at DESC").
		Offset((query.Page - 1) * query.PageSize).Limit(query.PageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	return messages, total, nil
}
