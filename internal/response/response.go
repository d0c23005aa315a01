// Package response 提供API统一响应格式
// 所有处理器通过本包返回响应，保证响应结构一致
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
)

// Response 统一返回值结构体
// @Description API统一响应格式
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code" example:"0"`
	// 响应消息
	Message string `json:"message" example:"success"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty" example:"req_123456789"`
	// 时间戳
	Timestamp int64 `json:"timestamp" example:"1640995200"`
}

// PageData 分页数据结构体
// @Description 分页响应数据格式
type PageData struct {
	// 数据列表
	List interface{} `json:"list"`
	// 总数
	Total int64 `json:"total" example:"100"`
	// 当前页码
	Page int `json:"page" example:"1"`
	// 每页大小
	PageSize int `json:"page_size" example:"10"`
	// 总页数
	TotalPages int `json:"total_pages" example:"10"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	Success(c, PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// Error 错误响应
// 应用错误按其错误码映射HTTP状态码，其他错误统一按500处理
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		c.JSON(appErr.HTTPStatus(), Response{
			Code:      int(appErr.Code),
			Message:   appErr.Message,
			Data:      detailsData(appErr),
			RequestID: getRequestID(c),
			Timestamp: time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Code:      int(apperrors.ErrInternalServer),
		Message:   apperrors.GetErrorMessage(apperrors.ErrInternalServer),
		RequestID: getRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, details string) {
	appErr := apperrors.ErrInvalidParameters.WithDetails(details)
	Error(c, appErr)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, details string) {
	appErr := apperrors.ErrUnauthorizedAccess.WithDetails(details)
	Error(c, appErr)
}

// detailsData 将错误详情包装为响应数据
func detailsData(appErr *apperrors.AppError) interface{} {
	if appErr.Details == "" {
		return nil
	}
	return gin.H{"details": appErr.Details}
}

// getRequestID 从gin上下文中获取请求ID，用于链路追踪
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
