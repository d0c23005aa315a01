package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/telegram"
)

// TelegramHandler Telegram关联处理器
type TelegramHandler struct {
	linkService telegram.LinkService
}

// NewTelegramHandler 创建Telegram关联处理器实例
func NewTelegramHandler(linkService telegram.LinkService) *TelegramHandler {
	return &TelegramHandler{
		linkService: linkService,
	}
}

// IssueLinkCode 获取关联码
// @Summary 获取Telegram关联码
// @Description 签发一次性关联码，用户向机器人发送 /start <关联码> 完成账户关联
// @Tags Telegram管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=telegram.LinkCodeResult}
// @Failure 409 {object} response.Response
// @Router /api/v1/telegram/link-code [post]
func (h *TelegramHandler) IssueLinkCode(c *gin.Context) {
	user := middleware.CurrentUser(c)
	result, err := h.linkService.IssueCode(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// LinkStatus 查询关联状态
// @Summary 查询Telegram关联状态
// @Tags Telegram管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=telegram.LinkStatusResult}
// @Failure 401 {object} response.Response
// @Router /api/v1/telegram/status [get]
func (h *TelegramHandler) LinkStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.Success(c, h.linkService.Status(user))
}

// Unlink 解除关联
// @Summary 解除Telegram关联
// @Tags Telegram管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/telegram/link [delete]
func (h *TelegramHandler) Unlink(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.linkService.Unlink(user); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "已解除Telegram关联", nil)
}
