package storage

import (
	"errors"
	"time"

	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
	"github.com/weiwangfds/mailagent/internal/logger"
	"gorm.io/gorm"
)

// CreateConfigRequest 创建存储配置请求结构
type CreateConfigRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`                     // 配置名称
	Provider    string `json:"provider" binding:"required,oneof=aliyun tencent qiniu"`    // 服务提供商
	Region      string `json:"region" binding:"required,max=50"`                          // 服务区域
	Bucket      string `json:"bucket" binding:"required,max=100"`                         // 存储桶名称
	AccessKey   string `json:"access_key" binding:"required,max=100"`                     // 访问密钥ID
	SecretKey   string `json:"secret_key" binding:"required,max=200"`                     // 访问密钥Secret
	Endpoint    string `json:"endpoint" binding:"omitempty,max=200"`                      // 自定义服务端点
	ArchivePath string `json:"archive_path" binding:"omitempty,max=200"`                  // 归档路径前缀
}

// UpdateConfigRequest 更新存储配置请求结构
type UpdateConfigRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Region      *string `json:"region" binding:"omitempty,max=50"`
	Bucket      *string `json:"bucket" binding:"omitempty,max=100"`
	AccessKey   *string `json:"access_key" binding:"omitempty,max=100"`
	SecretKey   *string `json:"secret_key" binding:"omitempty,max=200"`
	Endpoint    *string `json:"endpoint" binding:"omitempty,max=200"`
	ArchivePath *string `json:"archive_path" binding:"omitempty,max=200"`
	IsEnabled   *bool   `json:"is_enabled"`
}

// ConfigService 存储配置服务接口
// 定义了存储配置的增删改查、激活切换和连接测试方法
// 系统中同一时刻只有一个激活配置，附件归档使用激活配置
type ConfigService interface {
	// CreateConfig 创建存储配置
	CreateConfig(req *CreateConfigRequest) (*database.StorageConfig, error)

	// GetConfig 根据ID获取存储配置
	GetConfig(id uint) (*database.StorageConfig, error)

	// ListConfigs 获取所有存储配置
	ListConfigs() ([]*database.StorageConfig, error)

	// GetActiveConfig 获取当前激活的存储配置
	// 没有激活配置时返回ErrStorageConfigNotFound
	GetActiveConfig() (*database.StorageConfig, error)

	// UpdateConfig 更新存储配置
	UpdateConfig(id uint, req *UpdateConfigRequest) (*database.StorageConfig, error)

	// DeleteConfig 删除存储配置，激活中的配置不可删除
	DeleteConfig(id uint) error

	// ActivateConfig 激活指定配置，同时取消其他配置的激活状态
	ActivateConfig(id uint) error

	// TestConnection 测试存储配置的连接，结果写回配置记录
	TestConnection(id uint) error
}

// configService 存储配置服务实现
type configService struct {
	db *gorm.DB
}

// NewConfigService 创建存储配置服务实例
func NewConfigService(db *gorm.DB) ConfigService {
	return &configService{db: db}
}

// CreateConfig 创建存储配置
func (s *configService) CreateConfig(req *CreateConfigRequest) (*database.StorageConfig, error) {
	cfg := &database.StorageConfig{
		Name:        req.Name,
		Provider:    req.Provider,
		Region:      req.Region,
		Bucket:      req.Bucket,
		AccessKey:   req.AccessKey,
		SecretKey:   req.SecretKey,
		Endpoint:    req.Endpoint,
		ArchivePath: req.ArchivePath,
		IsEnabled:   true,
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "archive"
	}

	if err := s.db.Create(cfg).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	logger.Infof("[存储配置] 创建配置成功: %s (%s)", cfg.Name, cfg.Provider)
	return cfg, nil
}

// GetConfig 根据ID获取存储配置
func (s *configService) GetConfig(id uint) (*database.StorageConfig, error) {
	var cfg database.StorageConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStorageConfigNotFoundError
		}
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return &cfg, nil
}

// ListConfigs 获取所有存储配置
func (s *configService) ListConfigs() ([]*database.StorageConfig, error) {
	var configs []*database.StorageConfig
	if err := s.db.Order("created_at DESC").Find(&configs).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return configs, nil
}

// GetActiveConfig 获取当前激活的存储配置
func (s *configService) GetActiveConfig() (*database.StorageConfig, error) {
	var cfg database.StorageConfig
	err := s.db.Where("is_active = ? AND is_enabled = ?", true, true).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStorageConfigNotFoundError
		}
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return &cfg, nil
}

// UpdateConfig 更新存储配置
func (s *configService) UpdateConfig(id uint, req *UpdateConfigRequest) (*database.StorageConfig, error) {
	cfg, err := s.GetConfig(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.Bucket != nil {
		updates["bucket"] = *req.Bucket
	}
	if req.AccessKey != nil {
		updates["access_key"] = *req.AccessKey
	}
	if req.SecretKey != nil {
		updates["secret_key"] = *req.SecretKey
	}
	if req.Endpoint != nil {
		updates["endpoint"] = *req.Endpoint
	}
	if req.ArchivePath != nil {
		updates["archive_path"] = *req.ArchivePath
	}
	if req.IsEnabled != nil {
		updates["is_enabled"] = *req.IsEnabled
	}

	if len(updates) == 0 {
		return cfg, nil
	}

	// 凭证或地址变更后，上次测试结果不再可信
	updates["test_status"] = ""
	updates["last_test_at"] = nil

	if err := s.db.Model(cfg).Updates(updates).Error; err != nil {
		return nil, apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}
	return cfg, nil
}

// DeleteConfig 删除存储配置
func (s *configService) DeleteConfig(id uint) error {
	cfg, err := s.GetConfig(id)
	if err != nil {
		return err
	}
	if cfg.IsActive {
		return apperrors.New(apperrors.ErrStorageConfigInvalid, "激活中的配置不可删除，请先激活其他配置")
	}

	if err := s.db.Delete(cfg).Error; err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseQuery, err)
	}

	logger.Infof("[存储配置] 删除配置成功: %s", cfg.Name)
	return nil
}

// ActivateConfig 激活指定配置
func (s *configService) ActivateConfig(id uint) error {
	cfg, err := s.GetConfig(id)
	if err != nil {
		return err
	}
	if !cfg.IsEnabled {
		return apperrors.New(apperrors.ErrStorageConfigInvalid, "配置已禁用，不可激活")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 取消其他配置的激活状态
		if err := tx.Model(&database.StorageConfig{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(cfg).Update("is_active", true).Error
	})
	if err != nil {
		return apperrors.WrapCode(apperrors.ErrDatabaseTransaction, err)
	}

	logger.Infof("[存储配置] 激活配置: %s (%s)", cfg.Name, cfg.Provider)
	return nil
}

// TestConnection 测试存储配置的连接
// 测试结果和时间写回配置记录，供管理界面展示
func (s *configService) TestConnection(id uint) error {
	cfg, err := s.GetConfig(id)
	if err != nil {
		return err
	}

	now := time.Now()
	testErr := s.doTest(cfg)

	status := "ok"
	if testErr != nil {
		status = "failed"
	}
	if err := s.db.Model(cfg).Updates(map[string]interface{}{
		"last_test_at": &now,
		"test_status":  status,
	}).Error; err != nil {
		logger.Errorf("[存储配置] 写回测试结果失败: %v", err)
	}

	if testErr != nil {
		return apperrors.WrapCode(apperrors.ErrStorageConnectionFailed, testErr)
	}
	return nil
}

// doTest 构建提供商实例并执行连接测试
func (s *configService) doTest(cfg *database.StorageConfig) error {
	provider, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	return provider.TestConnection()
}
