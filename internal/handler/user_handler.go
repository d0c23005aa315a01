package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/response"
	"github.com/weiwangfds/mailagent/internal/service/user"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService user.UserService
}

// NewUserHandler 创建用户处理器实例
func NewUserHandler(userService user.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile 获取当前用户资料
// @Summary 获取当前用户资料
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=database.User}
// @Failure 401 {object} response.Response
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)
	response.Success(c, h.userService.GetProfile(currentUser))
}

// UpdateProfile 更新当前用户资料
// @Summary 更新当前用户资料
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body user.UpdateProfileRequest true "用户资料"
// @Success 200 {object} response.Response{data=database.User}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	currentUser := middleware.CurrentUser(c)
	updated, err := h.userService.UpdateProfile(currentUser, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, updated)
}

// CompleteOnboarding 完成入驻流程
// @Summary 完成入驻流程
// @Description 要求Gmail已连接；用户还没有文件夹时自动创建默认文件夹集
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=user.OnboardingResult}
// @Failure 401 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/users/complete-onboarding [post]
func (h *UserHandler) CompleteOnboarding(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)
	result, err := h.userService.CompleteOnboarding(c.Request.Context(), currentUser)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "入驻流程已完成", result)
}
