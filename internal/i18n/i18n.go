// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和翻译功能
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/mailagent/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"unauthorized":          "未授权",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",
			"too_many_requests":     "请求过于频繁",
			"service_unavailable":   "服务不可用",

			"auth_token_invalid":     "登录凭证无效",
			"auth_token_expired":     "登录凭证已过期",
			"auth_code_exchange":     "授权码交换失败",
			"auth_state_mismatch":    "授权状态校验失败",
			"auth_userinfo_failed":   "获取用户信息失败",
			"user_not_found":         "用户不存在",
			"onboarding_incomplete":  "入驻流程未完成",
			"gmail_not_connected":    "Gmail账户未连接",

			"gmail_label_create_failed": "Gmail标签创建失败",
			"gmail_label_not_found":     "Gmail标签不存在",
			"gmail_api_failed":          "Gmail接口调用失败",
			"gmail_token_refresh":       "Gmail令牌刷新失败",

			"telegram_not_linked":      "Telegram账户未关联",
			"telegram_code_invalid":    "关联码无效",
			"telegram_code_expired":    "关联码已过期",
			"telegram_send_failed":     "Telegram消息发送失败",
			"telegram_already_linked":  "Telegram账户已关联",

			"folder_not_found":       "文件夹不存在",
			"folder_already_exists":  "文件夹名称已存在",
			"folder_has_messages":    "文件夹仍有关联邮件",
			"folder_create_failed":   "文件夹创建失败",

			"storage_config_not_found":       "存储配置未找到",
			"storage_config_invalid":         "存储配置无效",
			"storage_connection_failed":      "存储连接失败",
			"storage_upload_failed":          "存储上传失败",
			"storage_provider_not_supported": "存储提供商不支持",

			"database_connection":   "数据库连接错误",
			"database_query":        "数据库查询错误",
			"database_transaction":  "数据库事务错误",
			"record_not_found":      "记录未找到",
			"record_already_exists": "记录已存在",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"unauthorized":          "Unauthorized",
			"forbidden":             "Forbidden",
			"not_found":             "Resource Not Found",
			"too_many_requests":     "Too Many Requests",
			"service_unavailable":   "Service Unavailable",

			"auth_token_invalid":    "Invalid Token",
			"auth_token_expired":    "Token Expired",
			"auth_code_exchange":    "Authorization Code Exchange Failed",
			"auth_state_mismatch":   "OAuth State Mismatch",
			"auth_userinfo_failed":  "Failed to Fetch User Info",
			"user_not_found":        "User Not Found",
			"onboarding_incomplete": "Onboarding Incomplete",
			"gmail_not_connected":   "Gmail Account Not Connected",

			"gmail_label_create_failed": "Gmail Label Creation Failed",
			"gmail_label_not_found":     "Gmail Label Not Found",
			"gmail_api_failed":          "Gmail API Call Failed",
			"gmail_token_refresh":       "Gmail Token Refresh Failed",

			"telegram_not_linked":     "Telegram Account Not Linked",
			"telegram_code_invalid":   "Invalid Link Code",
			"telegram_code_expired":   "Link Code Expired",
			"telegram_send_failed":    "Telegram Message Delivery Failed",
			"telegram_already_linked": "Telegram Account Already Linked",

			"folder_not_found":      "Folder Not Found",
			"folder_already_exists": "Folder Name Already Exists",
			"folder_has_messages":   "Folder Still Has Messages",
			"folder_create_failed":  "Folder Creation Failed",

			"storage_config_not_found":       "Storage Config Not Found",
			"storage_config_invalid":         "Storage Config Invalid",
			"storage_connection_failed":      "Storage Connection Failed",
			"storage_upload_failed":          "Storage Upload Failed",
			"storage_provider_not_supported": "Storage Provider Not Supported",

			"database_connection":   "Database Connection Error",
			"database_query":        "Database Query Error",
			"database_transaction":  "Database Transaction Error",
			"record_not_found":      "Record Not Found",
			"record_already_exists": "Record Already Exists",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, enUS, zhCN)

	// 注册支持的语言 - 使用locale库的标识符
	langMappings := map[string]string{
		LangZhCN: "zh",
		LangEnUS: "en_US",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}

	logger.Info("国际化翻译器初始化完成")
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	if _, exists := i.translators[lang]; !exists {
		lang = i.defaultLang
	}

	if translation, found := translations[lang][key]; found {
		return translation
	}

	// 当前语言没有时回退到默认语言
	if lang != i.defaultLang {
		if translation, found := translations[i.defaultLang][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.defaultLang = lang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}
