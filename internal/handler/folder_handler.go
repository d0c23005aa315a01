package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/folder"
)

// FolderHandler 文件夹处理器
type FolderHandler struct {
	folderService folder.FolderService
}

// NewFolderHandler 创建文件夹处理器实例
func NewFolderHandler(folderService folder.FolderService) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
	}
}

// CreateFolder 创建文件夹
// @Summary 创建文件夹
// @Description 创建文件夹并同步创建Gmail标签，同名标签已存在时复用
// @Tags 文件夹管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param folder body folder.CreateFolderRequest true "文件夹信息"
// @Success 200 {object} response.Response{data=database.Folder}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/folders [post]
func (h *FolderHandler) CreateFolder(c *gin.Context) {
	var req folder.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	created, err := h.folderService.CreateFolder(c.Request.Context(), user, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件夹创建成功", created)
}

// BatchCreateFolders 批量创建文件夹
// @Summary 批量创建文件夹
// @Description 逐个创建文件夹，单个失败不影响其余，返回成功列表和失败明细
// @Tags 文件夹管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param folders body folder.BatchCreateRequest true "文件夹列表"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/folders/batch [post]
func (h *FolderHandler) BatchCreateFolders(c *gin.Context) {
	var req folder.BatchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	created, failed, err := h.folderService.BatchCreateFolders(c.Request.Context(), user, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"created": created,
		"failed":  failed,
	})
}

// ListFolders 查询文件夹列表
// @Summary 查询文件夹列表
// @Tags 文件夹管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param keyword query string false "名称搜索关键词"
// @Param sort_by query string false "排序字段" default(sort_order)
// @Param order query string false "排序方向" default(asc)
// @Success 200 {object} response.Response{data=response.PageData}
// @Failure 401 {object} response.Response
// @Router /api/v1/folders [get]
func (h *FolderHandler) ListFolders(c *gin.Context) {
	var query folder.ListFoldersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	folders, total, err := h.folderService.ListFolders(user, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, folders, total, query.Page, query.PageSize)
}

// GetFolder 获取文件夹详情
// @Summary 获取文件夹详情
// @Tags 文件夹管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件夹业务ID"
// @Success 200 {object} response.Response{data=database.Folder}
// @Failure 404 {object} response.Response
// @Router /api/v1/folders/{id} [get]
func (h *FolderHandler) GetFolder(c *gin.Context) {
	user := middleware.CurrentUser(c)
	f, err := h.folderService.GetFolder(user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, f)
}

// UpdateFolder 更新文件夹
// @Summary 更新文件夹
// @Description 更新文件夹属性，重命名时同步更新Gmail标签
// @Tags 文件夹管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件夹业务ID"
// @Param folder body folder.UpdateFolderRequest true "文件夹信息"
// @Success 200 {object} response.Response{data=database.Folder}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/folders/{id} [put]
func (h *FolderHandler) UpdateFolder(c *gin.Context) {
	var req folder.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	updated, err := h.folderService.UpdateFolder(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件夹更新成功", updated)
}

// DeleteFolder 删除文件夹
// @Summary 删除文件夹
// @Description 文件夹仍有关联邮件时需要force=true强制删除，邮件记录保留但解除归属
// @Tags 文件夹管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件夹业务ID"
// @Param force query bool false "强制删除" default(false)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/folders/{id} [delete]
func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	user := middleware.CurrentUser(c)
	if err := h.folderService.DeleteFolder(c.Request.Context(), user, c.Param("id"), force); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "文件夹删除成功", nil)
}
