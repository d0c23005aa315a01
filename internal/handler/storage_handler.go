package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/storage"
)

// StorageHandler 存储配置与归档处理器
type StorageHandler struct {
	configService  storage.ConfigService
	archiveService storage.ArchiveService
}

// NewStorageHandler 创建存储处理器实例
func NewStorageHandler(configService storage.ConfigService, archiveService storage.ArchiveService) *StorageHandler {
	return &StorageHandler{
		configService:  configService,
		archiveService: archiveService,
	}
}

// CreateConfig 创建存储配置
// @Summary 创建存储配置
// @Tags 存储管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param config body storage.CreateConfigRequest true "存储配置信息"
// @Success 200 {object} response.Response{data=database.StorageConfig}
// @Failure 400 {object} response.Response
// @Router /api/v1/storage/configs [post]
func (h *StorageHandler) CreateConfig(c *gin.Context) {
	var req storage.CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.configService.CreateConfig(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置创建成功", cfg)
}

// ListConfigs 查询存储配置列表
// @Summary 查询存储配置列表
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]database.StorageConfig}
// @Router /api/v1/storage/configs [get]
func (h *StorageHandler) ListConfigs(c *gin.Context) {
	configs, err := h.configService.ListConfigs()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, configs)
}

// GetConfig 获取存储配置详情
// @Summary 获取存储配置详情
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response{data=database.StorageConfig}
// @Failure 404 {object} response.Response
// @Router /api/v1/storage/configs/{id} [get]
func (h *StorageHandler) GetConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.configService.GetConfig(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cfg)
}

// UpdateConfig 更新存储配置
// @Summary 更新存储配置
// @Tags 存储管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "配置ID"
// @Param config body storage.UpdateConfigRequest true "存储配置信息"
// @Success 200 {object} response.Response{data=database.StorageConfig}
// @Failure 404 {object} response.Response
// @Router /api/v1/storage/configs/{id} [put]
func (h *StorageHandler) UpdateConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req storage.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.configService.UpdateConfig(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置更新成功", cfg)
}

// DeleteConfig 删除存储配置
// @Summary 删除存储配置
// @Description 激活中的配置不可删除
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/storage/configs/{id} [delete]
func (h *StorageHandler) DeleteConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.DeleteConfig(id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置删除成功", nil)
}

// ActivateConfig 激活存储配置
// @Summary 激活存储配置
// @Description 激活指定配置作为附件归档目标，其他配置自动取消激活
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/storage/configs/{id}/activate [post]
func (h *StorageHandler) ActivateConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.ActivateConfig(id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置已激活", nil)
}

// TestConfig 测试存储配置连接
// @Summary 测试存储配置连接
// @Description 执行连接测试并将结果写回配置记录
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/storage/configs/{id}/test [post]
func (h *StorageHandler) TestConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.TestConnection(id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "连接测试通过", nil)
}

// ListArchives 查询附件归档日志
// @Summary 查询附件归档日志
// @Tags 存储管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/storage/archives [get]
func (h *StorageHandler) ListArchives(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	user := middleware.CurrentUser(c)
	logs, total, err := h.archiveService.ListArchives(user, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, logs, total, page, pageSize)
}

// parseConfigID 解析路径中的配置ID参数
func parseConfigID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
