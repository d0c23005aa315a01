// Package folder 提供文件夹相关的业务逻辑服务
// 包含文件夹的创建、查询、更新、删除以及与Gmail标签的同步功能
package folder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"github.com/weiwangfds/mailagent/internal/service/gmail"
	"gorm.io/gorm"
)

// CreateFolderRequest 创建文件夹请求结构
type CreateFolderRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=100"` // 文件夹名称，必填
	Description   string `json:"description" binding:"max=500"`         // 文件夹描述，可选
	Color         string `json:"color" binding:"omitempty,hexcolor"`    // 文件夹颜色，十六进制格式
	SortOrder     int    `json:"sort_order"`                            // 排序顺序
	MatchSenders  string `json:"match_senders" binding:"max=1000"`      // 发件人匹配规则，逗号分隔
	MatchKeywords string `json:"match_keywords" binding:"max=1000"`     // 主题关键词匹配规则，逗号分隔
}

// UpdateFolderRequest 更新文件夹请求结构
type UpdateFolderRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=100"` // 文件夹名称
	Description   *string `json:"description" binding:"omitempty,max=500"`
	Color         *string `json:"color" binding:"omitempty,hexcolor"`
	SortOrder     *int    `json:"sort_order"`
	MatchSenders  *string `json:"match_senders" binding:"omitempty,max=1000"`
	MatchKeywords *string `json:"match_keywords" binding:"omitempty,max=1000"`
}

// BatchCreateRequest 批量创建文件夹请求结构
type BatchCreateRequest struct {
	Folders []CreateFolderRequest `json:"folders" binding:"required,min=1,max=20,dive"` // 待创建的文件夹列表
}

// ListFoldersQuery 文件夹列表查询参数
type ListFoldersQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`               // 页码
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"` // 每页数量
	Keyword  string `form:"keyword"`                                      // 名称模糊搜索关键词
	SortBy   string `form:"sort_by,default=sort_order"`                   // 排序字段
	Order    string `form:"order,default=asc"`                            // 排序方向
}

// FolderService 文件夹服务接口
// 定义了文件夹管理的所有业务操作方法
// 每个文件夹对应一个Gmail标签，创建和重命名时同步到Gmail
type FolderService interface {
	// CreateFolder 创建文件夹并同步创建Gmail标签
	// 同名标签已存在时复用该标签，不视为失败
	CreateFolder(ctx context.Context, user *database.User, req *CreateFolderRequest) (*database.Folder, error)

	// BatchCreateFolders 批量创建文件夹
	// 逐个创建，单个失败不影响其余，返回成功创建的文件夹和失败明细
	BatchCreateFolders(ctx context.Context, user *database.User, req *BatchCreateRequest) ([]*database.Folder, []string, error)

	// BootstrapDefaults 为用户创建默认文件夹
	// 仅在用户还没有任何文件夹时生效，用于入驻流程
	BootstrapDefaults(ctx context.Context, user *database.User) ([]*database.Folder, error)

	// GetFolder 根据业务ID获取文件夹
	GetFolder(user *database.User, folderID string) (*database.Folder, error)

	// ListFolders 分页查询用户的文件夹列表
	ListFolders(user *database.User, query *ListFoldersQuery) ([]*database.Folder, int64, error)

	// UpdateFolder 更新文件夹，重命名时同步更新Gmail标签
	UpdateFolder(ctx context.Context, user *database.User, folderID string, req *UpdateFolderRequest) (*database.Folder, error)

	// DeleteFolder 删除文件夹
	// 文件夹仍有关联邮件时需要force参数，Gmail标签删除为尽力而为
	DeleteFolder(ctx context.Context, user *database.User, folderID string, force bool) error

	// CountFolders 统计用户的文件夹数量
	CountFolders(user *database.User) (int64, error)
}

// folderService 文件夹服务实现
type folderService struct {
	db           *gorm.DB
	gmailFactory gmail.ClientFactory
}

// NewFolderService 创建文件夹服务实例
// 参数:
//   db - 数据库连接
//   gmailFactory - Gmail客户端工厂，用于标签同步
// 返回:
//   FolderService - 文件夹服务接口实例
func NewFolderService(db *gorm.DB, gmailFactory gmail.ClientFactory) FolderService {
	return &folderService{
		db:           db,
		gmailFactory: gmailFactory,
	}
}

// CreateFolder 创建文件夹并同步创建Gmail标签
func (s *folderService) CreateFolder(ctx context.Context, user *database.User, req *CreateFolderRequest) (*database.Folder, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("文件夹名称不能为空")
	}

	// 检查同名文件夹（不区分大小写）
	if err := s.checkDuplicateName(user.ID, name, 0); err != nil {
		return nil, err
	}

	// 先在Gmail侧确保标签存在，名称冲突时复用已有标签
	client, err := s.gmailFactory.ForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	labelID, err := client.EnsureLabel(ctx, name)
	if err != nil {
		return nil, err
	}

	folder := &database.Folder{
		FolderID:      uuid.New().String(),
		OwnerID:       user.ID,
		Name:          name,
		Description:   req.Description,
		Color:         req.Color,
		GmailLabelID:  labelID,
		SortOrder:     req.SortOrder,
		MatchSenders:  req.MatchSenders,
		MatchKeywords: req.MatchKeywords,
	}
	if folder.Color == "" {
		folder.Color = "#007bff"
	}

	if err := s.db.Create(folder).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFolderCreateFailed, "创建文件夹失败", err)
	}

	logger.Infof("[文件夹服务] 创建文件夹成功: %s (用户: %s, 标签: %s)", folder.Name, user.Email, labelID)
	return folder, nil
}

// BatchCreateFolders 批量创建文件夹
func (s *folderService) BatchCreateFolders(ctx context.Context, user *database.User, req *BatchCreateRequest) ([]*database.Folder, []string, error) {
	created := make([]*database.Folder, 0, len(req.Folders))
	var failed []string

	for i := range req.Folders {
		folder, err := s.CreateFolder(ctx, user, &req.Folders[i])
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", req.Folders[i].Name, err))
			continue
		}
		created = append(created, folder)
	}

	if len(created) == 0 && len(failed) > 0 {
		return nil, failed, apperrors.NewWithDetails(apperrors.ErrFolderCreateFailed,
			"批量创建文件夹失败", strings.Join(failed, "; "))
	}
	return created, failed, nil
}

// BootstrapDefaults 为用户创建默认文件夹
func (s *folderService) BootstrapDefaults(ctx context.Context, user *database.User) ([]*database.Folder, error) {
	count, err := s.CountFolders(user)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		// 用户已有文件夹，不重复创建默认集
		return nil, nil
	}

	client, err := s.gmailFactory.ForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	templates := database.DefaultFolderTemplates()
	folders := make([]*database.Folder, 0, len(templates))
	for i, tpl := range templates {
		labelID, err := client.EnsureLabel(ctx, tpl.Name)
		if err != nil {
			return nil, err
		}

		folder := &database.Folder{
			FolderID:      uuid.New().String(),
			OwnerID:       user.ID,
			Name:          tpl.Name,
			Description:   tpl.Description,
			Color:         tpl.Color,
			GmailLabelID:  labelID,
			SortOrder:     i,
			IsDefault:     true,
			MatchSenders:  tpl.MatchSenders,
			MatchKeywords: tpl.MatchKeywords,
		}
		if err := s.db.Create(folder).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrFolderCreateFailed, "创建默认文件夹失败", err)
		}
		folders = append(folders, folder)
	}

	logger.Infof("[文件夹服务] 为用户创建默认文件夹: %s (共%d个)", user.Email, len(folders))
	return folders, nil
}

// GetFolder 根据业务ID获取文件夹
func (s *folderService) GetFolder(user *database.User, folderID string) (*database.Folder, error) {
	var folder database.Folder
	err := s.db.Where("folder_id = ? AND owner_id = ?", folderID, user.ID).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFolderNotFoundError
		}
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return &folder, nil
}

// ListFolders 分页查询用户的文件夹列表
func (s *folderService) ListFolders(user *database.User, query *ListFoldersQuery) ([]*database.Folder, int64, error) {
	db := s.db.Model(&database.Folder{}).Where("owner_id = ?", user.ID)

	if query.Keyword != "" {
		db = db.Where("name LIKE ?", "%"+query.Keyword+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	// 排序字段白名单，避免注入
	sortBy := query.SortBy
	switch sortBy {
	case "name", "created_at", "sort_order", "message_count":
	default:
		sortBy = "sort_order"
	}
	order := "ASC"
	if strings.EqualFold(query.Order, "desc") {
		order = "DESC"
	}

	var folders []*database.Folder
	offset := (query.Page - 1) * query.PageSize
	err := db.Order(fmt.Sprintf("%s %s", sortBy, order)).
		Offset(offset).Limit(query.PageSize).
		Find(&folders).Error
	if err != nil {
		return nil, 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	return folders, total, nil
}

// UpdateFolder 更新文件夹，重命名时同步更新Gmail标签
func (s *folderService) UpdateFolder(ctx context.Context, user *database.User, folderID string, req *UpdateFolderRequest) (*database.Folder, error) {
	folder, err := s.GetFolder(user, folderID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName == "" {
			return nil, apperrors.ErrInvalidParameters.WithDetails("文件夹名称不能为空")
		}
		if !strings.EqualFold(newName, folder.Name) {
			if err := s.checkDuplicateName(user.ID, newName, folder.ID); err != nil {
				return nil, err
			}
			// 同步重命名Gmail标签
			if folder.GmailLabelID != "" {
				client, err := s.gmailFactory.ForUser(ctx, user)
				if err != nil {
					return nil, err
				}
				if err := client.RenameLabel(ctx, folder.GmailLabelID, newName); err != nil {
					return nil, err
				}
			}
		}
		updates["name"] = newName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.MatchSenders != nil {
		updates["match_senders"] = *req.MatchSenders
	}
	if req.MatchKeywords != nil {
		updates["match_keywords"] = *req.MatchKeywords
	}

	if len(updates) == 0 {
		return folder, nil
	}

	if err := s.db.Model(folder).Updates(updates).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	logger.Infof("[文件夹服务] 更新文件夹成功: %s (用户: %s)", folder.Name, user.Email)
	return folder, nil
}

// DeleteFolder 删除文件夹
// 文件夹仍有关联邮件时需要force参数确认；关联的邮件记录保留但解除归属
// Gmail标签删除失败不阻塞文件夹删除
func (s *folderService) DeleteFolder(ctx context.Context, user *database.User, folderID string, force bool) error {
	folder, err := s.GetFolder(user, folderID)
	if err != nil {
		return err
	}

	var messageCount int64
	if err := s.db.Model(&database.ProcessedMessage{}).Where("folder_id = ?", folder.ID).Count(&messageCount).Error; err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	if messageCount > 0 && !force {
		return apperrors.ErrFolderHasMessagesError.WithDetails(
			fmt.Sprintf("文件夹下仍有 %d 封已归类邮件，使用force参数强制删除", messageCount))
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if messageCount > 0 {
			// 解除邮件记录的文件夹归属，保留处理历史
			if err := tx.Model(&database.ProcessedMessage{}).
				Where("folder_id = ?", folder.ID).
				Update("folder_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(folder).Error
	})
	if err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseTransaction, err)
	}

	// 尽力删除Gmail标签，失败只记录日志
	if folder.GmailLabelID != "" {
		if client, cerr := s.gmailFactory.ForUser(ctx, user); cerr == nil {
			if derr := client.DeleteLabel(ctx, folder.GmailLabelID); derr != nil {
				logger.Warnf("[文件夹服务] 删除Gmail标签失败: %s, 错误: %v", folder.GmailLabelID, derr)
			}
		}
	}

	logger.Infof("[文件夹服务] 删除文件夹成功: %s (用户: %s, 强制: %v)", folder.Name, user.Email, force)
	return nil
}

// CountFolders 统计用户的文件夹数量
func (s *folderService) CountFolders(user *database.User) (int64, error) {
	var count int64
	if err := s.db.Model(&database.Folder{}).Where("owner_id = ?", user.ID).Count(&count).Error; err != nil {
		return 0, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return count, nil
}

// checkDuplicateName 检查同一用户下是否存在同名文件夹（不区分大小写）
// excludeID不为0时排除指定文件夹自身，用于重命名场景
func (s *folderService) checkDuplicateName(ownerID uint, name string, excludeID uint) error {
	db := s.db.Model(&database.Folder{}).
		Where("owner_id = ? AND LOWER(name) = LOWER(?)", ownerID, name)
	if excludeID > 0 {
		db = db.Where("id != ?", excludeID)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	if count > 0 {
		return apperrors.ErrFolderAlreadyExistsError.WithDetails(
			fmt.Sprintf("文件夹名称 '%s' 已存在", name))
	}
	return nil
}
