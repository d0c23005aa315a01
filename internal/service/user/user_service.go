// Package user 提供用户资料和入驻流程相关的业务逻辑服务
package user

import (
	"context"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"github.com/weiwangfds/mailagent/internal/service/folder"
	"gorm.io/gorm"
)

// UpdateProfileRequest 更新用户资料请求结构
type UpdateProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=100"` // 用户显示名称
}

// OnboardingResult 入驻完成结果
type OnboardingResult struct {
	User           *database.User     `json:"user"`            // 更新后的用户信息
	CreatedFolders []*database.Folder `json:"created_folders"` // 入驻时创建的默认文件夹
	FolderCount    int64              `json:"folder_count"`    // 用户当前文件夹总数
}

// UserService 用户服务接口
// 定义了用户资料管理和入驻流程的业务操作方法
type UserService interface {
	// GetProfile 获取用户资料
	GetProfile(user *database.User) *database.User

	// UpdateProfile 更新用户资料
	UpdateProfile(user *database.User, req *UpdateProfileRequest) (*database.User, error)

	// CompleteOnboarding 完成入驻流程
	// 前置条件为Gmail已连接；用户还没有文件夹时自动创建默认文件夹集
	// Telegram关联为可选项，不阻塞入驻完成
	CompleteOnboarding(ctx context.Context, user *database.User) (*OnboardingResult, error)
}

// userService 用户服务实现
type userService struct {
	db      *gorm.DB
	folders folder.FolderService
}

// NewUserService 创建用户服务实例
// 参数:
//   db - 数据库连接
//   folders - 文件夹服务，入驻时用于创建默认文件夹
// 返回:
//   UserService - 用户服务接口实例
func NewUserService(db *gorm.DB, folders folder.FolderService) UserService {
	return &userService{
		db:      db,
		folders: folders,
	}
}

// GetProfile 获取用户资料
func (s *userService) GetProfile(user *database.User) *database.User {
	return user
}

// UpdateProfile 更新用户资料
func (s *userService) UpdateProfile(user *database.User, req *UpdateProfileRequest) (*database.User, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return user, nil
}

// CompleteOnboarding 完成入驻流程
// 入驻标志一旦置为true不会被回退，重复调用直接返回当前状态
func (s *userService) CompleteOnboarding(ctx context.Context, user *database.User) (*OnboardingResult, error) {
	// 前置条件：Gmail已连接
	var tokenCount int64
	if err := s.db.Model(&database.OAuthToken{}).Where("user_id = ?", user.ID).Count(&tokenCount).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	if tokenCount == 0 {
		return nil, apperrors.ErrGmailNotConnectedError
	}

	var created []*database.Folder
	if !user.OnboardingCompleted {
		// 用户还没有文件夹时创建默认文件夹集
		folders, err := s.folders.BootstrapDefaults(ctx, user)
		if err != nil {
			return nil, err
		}
		created = folders

		if err := s.db.Model(user).Update("onboarding_completed", true).Error; err != nil {
			return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
		}
		user.OnboardingCompleted = true
		logger.Infof("[用户服务] 入驻流程完成: %s (创建默认文件夹: %d个)", user.Email, len(created))
	}

	count, err := s.folders.CountFolders(user)
	if err != nil {
		return nil, err
	}

	return &OnboardingResult{
		User:           user,
		CreatedFolders: created,
		FolderCount:    count,
	}, nil
}
