// Package errors 提供应用程序统一的错误定义
// 错误码按业务域分段，错误消息通过i18n获取
package errors

import (
	"fmt"
	"net/http"

	"github.com/weiwangfds/mailagent/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess            ErrorCode = 0    // 成功
	ErrInternalServer     ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源未找到
	ErrTooManyRequests    ErrorCode = 1005 // 请求过于频繁
	ErrServiceUnavailable ErrorCode = 1006 // 服务不可用

	// 认证与用户相关错误码 (2000-2999)
	ErrAuthTokenInvalid     ErrorCode = 2000 // 登录凭证无效
	ErrAuthTokenExpired     ErrorCode = 2001 // 登录凭证过期
	ErrAuthCodeExchange     ErrorCode = 2002 // 授权码交换失败
	ErrAuthStateMismatch    ErrorCode = 2003 // OAuth状态校验失败
	ErrAuthUserinfoFailed   ErrorCode = 2004 // 获取用户信息失败
	ErrUserNotFound         ErrorCode = 2005 // 用户不存在
	ErrOnboardingIncomplete ErrorCode = 2006 // 入驻流程未完成
	ErrGmailNotConnected    ErrorCode = 2007 // Gmail账户未连接

	// Gmail相关错误码 (3000-3999)
	ErrGmailLabelCreateFailed ErrorCode = 3000 // Gmail标签创建失败
	ErrGmailLabelNotFound     ErrorCode = 3001 // Gmail标签不存在
	ErrGmailAPIFailed         ErrorCode = 3002 // Gmail接口调用失败
	ErrGmailTokenRefresh      ErrorCode = 3003 // Gmail令牌刷新失败

	// Telegram相关错误码 (4000-4999)
	ErrTelegramNotLinked     ErrorCode = 4000 // Telegram账户未关联
	ErrTelegramCodeInvalid   ErrorCode = 4001 // 关联码无效
	ErrTelegramCodeExpired   ErrorCode = 4002 // 关联码已过期
	ErrTelegramSendFailed    ErrorCode = 4003 // Telegram消息发送失败
	ErrTelegramAlreadyLinked ErrorCode = 4004 // Telegram账户已关联

	// 文件夹相关错误码 (5000-5999)
	ErrFolderNotFound      ErrorCode = 5000 // 文件夹不存在
	ErrFolderAlreadyExists ErrorCode = 5001 // 文件夹名称已存在
	ErrFolderHasMessages   ErrorCode = 5002 // 文件夹仍有关联邮件
	ErrFolderCreateFailed  ErrorCode = 5003 // 文件夹创建失败

	// 存储相关错误码 (6000-6999)
	ErrStorageConfigNotFound       ErrorCode = 6000 // 存储配置未找到
	ErrStorageConfigInvalid        ErrorCode = 6001 // 存储配置无效
	ErrStorageConnectionFailed     ErrorCode = 6002 // 存储连接失败
	ErrStorageUploadFailed         ErrorCode = 6003 // 存储上传失败
	ErrStorageProviderNotSupported ErrorCode = 6004 // 存储提供商不支持

	// 数据库相关错误码 (7000-7999)
	ErrDatabaseConnection  ErrorCode = 7000 // 数据库连接错误
	ErrDatabaseQuery       ErrorCode = 7001 // 数据库查询错误
	ErrDatabaseTransaction ErrorCode = 7002 // 数据库事务错误
	ErrRecordNotFound      ErrorCode = 7003 // 记录未找到
	ErrRecordAlreadyExists ErrorCode = 7004 // 记录已存在
)

// AppError 应用错误结构体
// @Description 应用程序统一错误格式
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持errors.Is/As链
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// HTTPStatus 返回错误码对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrSuccess:
		return http.StatusOK
	case ErrInvalidParams, ErrStorageConfigInvalid, ErrTelegramCodeInvalid:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrAuthTokenInvalid, ErrAuthTokenExpired, ErrAuthStateMismatch:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound, ErrUserNotFound, ErrFolderNotFound, ErrGmailLabelNotFound,
		ErrStorageConfigNotFound, ErrRecordNotFound:
		return http.StatusNotFound
	case ErrFolderAlreadyExists, ErrFolderHasMessages, ErrRecordAlreadyExists,
		ErrTelegramAlreadyLinked:
		return http.StatusConflict
	case ErrOnboardingIncomplete, ErrGmailNotConnected, ErrTelegramNotLinked,
		ErrTelegramCodeExpired:
		return http.StatusUnprocessableEntity
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails 创建带详细信息的应用错误
func NewWithDetails(code ErrorCode, message string, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Message:       message,
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// WrapCode 使用错误码的默认消息包装原始错误
func WrapCode(code ErrorCode, err error) *AppError {
	return Wrap(code, GetErrorMessage(code), err)
}

// GetAppError 从错误中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// 预定义的常用错误
var (
	// 通用错误
	ErrInternalServerError = New(ErrInternalServer, GetErrorMessage(ErrInternalServer))
	ErrInvalidParameters   = New(ErrInvalidParams, GetErrorMessage(ErrInvalidParams))
	ErrUnauthorizedAccess  = New(ErrUnauthorized, GetErrorMessage(ErrUnauthorized))
	ErrResourceNotFound    = New(ErrNotFound, GetErrorMessage(ErrNotFound))

	// 认证与用户相关错误
	ErrAuthTokenInvalidError     = New(ErrAuthTokenInvalid, GetErrorMessage(ErrAuthTokenInvalid))
	ErrAuthTokenExpiredError     = New(ErrAuthTokenExpired, GetErrorMessage(ErrAuthTokenExpired))
	ErrAuthStateMismatchError    = New(ErrAuthStateMismatch, GetErrorMessage(ErrAuthStateMismatch))
	ErrUserNotFoundError         = New(ErrUserNotFound, GetErrorMessage(ErrUserNotFound))
	ErrGmailNotConnectedError    = New(ErrGmailNotConnected, GetErrorMessage(ErrGmailNotConnected))
	ErrOnboardingIncompleteError = New(ErrOnboardingIncomplete, GetErrorMessage(ErrOnboardingIncomplete))

	// Telegram相关错误
	ErrTelegramNotLinkedError     = New(ErrTelegramNotLinked, GetErrorMessage(ErrTelegramNotLinked))
	ErrTelegramCodeInvalidError   = New(ErrTelegramCodeInvalid, GetErrorMessage(ErrTelegramCodeInvalid))
	ErrTelegramCodeExpiredError   = New(ErrTelegramCodeExpired, GetErrorMessage(ErrTelegramCodeExpired))
	ErrTelegramAlreadyLinkedError = New(ErrTelegramAlreadyLinked, GetErrorMessage(ErrTelegramAlreadyLinked))

	// 文件夹相关错误
	ErrFolderNotFoundError      = New(ErrFolderNotFound, GetErrorMessage(ErrFolderNotFound))
	ErrFolderAlreadyExistsError = New(ErrFolderAlreadyExists, GetErrorMessage(ErrFolderAlreadyExists))
	ErrFolderHasMessagesError   = New(ErrFolderHasMessages, GetErrorMessage(ErrFolderHasMessages))

	// 存储相关错误
	ErrStorageConfigNotFoundError       = New(ErrStorageConfigNotFound, GetErrorMessage(ErrStorageConfigNotFound))
	ErrStorageProviderNotSupportedError = New(ErrStorageProviderNotSupported, GetErrorMessage(ErrStorageProviderNotSupported))
)

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:            "success",
	ErrInternalServer:     "internal_server_error",
	ErrInvalidParams:      "invalid_params",
	ErrUnauthorized:       "unauthorized",
	ErrForbidden:          "forbidden",
	ErrNotFound:           "not_found",
	ErrTooManyRequests:    "too_many_requests",
	ErrServiceUnavailable: "service_unavailable",

	ErrAuthTokenInvalid:     "auth_token_invalid",
	ErrAuthTokenExpired:     "auth_token_expired",
	ErrAuthCodeExchange:     "auth_code_exchange",
	ErrAuthStateMismatch:    "auth_state_mismatch",
	ErrAuthUserinfoFailed:   "auth_userinfo_failed",
	ErrUserNotFound:         "user_not_found",
	ErrOnboardingIncomplete: "onboarding_incomplete",
	ErrGmailNotConnected:    "gmail_not_connected",

	ErrGmailLabelCreateFailed: "gmail_label_create_failed",
	ErrGmailLabelNotFound:     "gmail_label_not_found",
	ErrGmailAPIFailed:         "gmail_api_failed",
	ErrGmailTokenRefresh:      "gmail_token_refresh",

	ErrTelegramNotLinked:     "telegram_not_linked",
	ErrTelegramCodeInvalid:   "telegram_code_invalid",
	ErrTelegramCodeExpired:   "telegram_code_expired",
	ErrTelegramSendFailed:    "telegram_send_failed",
	ErrTelegramAlreadyLinked: "telegram_already_linked",

	ErrFolderNotFound:      "folder_not_found",
	ErrFolderAlreadyExists: "folder_already_exists",
	ErrFolderHasMessages:   "folder_has_messages",
	ErrFolderCreateFailed:  "folder_create_failed",

	ErrStorageConfigNotFound:       "storage_config_not_found",
	ErrStorageConfigInvalid:        "storage_config_invalid",
	ErrStorageConnectionFailed:     "storage_connection_failed",
	ErrStorageUploadFailed:         "storage_upload_failed",
	ErrStorageProviderNotSupported: "storage_provider_not_supported",

	ErrDatabaseConnection:  "database_connection",
	ErrDatabaseQuery:       "database_query",
	ErrDatabaseTransaction: "database_transaction",
	ErrRecordNotFound:      "record_not_found",
	ErrRecordAlreadyExists: "record_already_exists",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
