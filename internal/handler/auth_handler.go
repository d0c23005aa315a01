// Package handler 提供HTTP请求处理器
// 负责参数校验、调用业务服务并统一响应格式
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService auth.AuthService
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authService auth.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login 获取Google授权地址
// @Summary 获取Google授权地址
// @Description 生成Google OAuth授权页面地址，客户端跳转该地址完成授权
// @Tags 认证管理
// @Produce json
// @Success 200 {object} response.Response{data=auth.LoginURLResult}
// @Failure 500 {object} response.Response
// @Router /api/v1/auth/google/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	result, err := h.authService.LoginURL()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Callback 处理Google授权回调
// @Summary 处理Google授权回调
// @Description 校验state参数、交换授权码并完成登录，返回JWT访问令牌
// @Tags 认证管理
// @Produce json
// @Param state query string true "OAuth状态参数"
// @Param code query string true "授权码"
// @Success 200 {object} response.Response{data=auth.LoginResult}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/google/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	result, err := h.authService.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "登录成功", result)
}

// Status 查询认证状态
// @Summary 查询认证状态
// @Description 返回当前用户的认证和入驻状态，状态从数据库实时读取
// @Tags 认证管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=auth.StatusResult}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/status [get]
func (h *AuthHandler) Status(c *gin.Context) {
	user := middleware.CurrentUser(c)
	result, err := h.authService.Status(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
