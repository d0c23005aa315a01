package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/dashboard"
)

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	dashboardService dashboard.DashboardService
}

// NewDashboardHandler 创建仪表盘处理器实例
func NewDashboardHandler(dashboardService dashboard.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Stats 获取仪表盘统计数据
// @Summary 获取仪表盘统计数据
// @Description 聚合文件夹、邮件处理和通知投递统计，供仪表盘一次性拉取
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=dashboard.StatsResult}
// @Failure 401 {object} response.Response
// @Router /api/v1/dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	result, err := h.dashboardService.Stats(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListMessages 查询已处理邮件记录
// @Summary 查询已处理邮件记录
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param folder_id query string false "按文件夹业务ID过滤"
// @Param keyword query string false "主题或发件人搜索关键词"
// @Success 200 {object} response.Response{data=response.PageData}
// @Failure 401 {object} response.Response
// @Router /api/v1/messages [get]
func (h *DashboardHandler) ListMessages(c *gin.Context) {
	var query dashboard.ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	messages, total, err := h.dashboardService.ListMessages(user, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, messages, total, query.Page, query.PageSize)
}
