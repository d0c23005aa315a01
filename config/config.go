// Package config 提供应用程序配置管理
// 基于viper实现，支持配置文件和环境变量两种来源
// 环境变量使用 MAILAGENT_ 前缀，如 MAILAGENT_SERVER_PORT
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // HTTP服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	Google   GoogleConfig   `mapstructure:"google"`   // Google OAuth配置
	Telegram TelegramConfig `mapstructure:"telegram"` // Telegram机器人配置
	Auth     AuthConfig     `mapstructure:"auth"`     // 认证配置
	Agent    AgentConfig    `mapstructure:"agent"`    // 邮件代理配置
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`           // HTTP监听端口
	ReadTimeout  int    `mapstructure:"read_timeout"`   // 读超时（秒）
	WriteTimeout int    `mapstructure:"write_timeout"`  // 写超时（秒）
	EnableHTTPS  bool   `mapstructure:"enable_https"`   // 是否启用HTTPS
	HTTPSPort    int    `mapstructure:"https_port"`     // HTTPS监听端口
	EnableHTTP2  bool   `mapstructure:"enable_http2"`   // 是否启用HTTP/2（仅HTTPS下生效）
	TLSCertFile  string `mapstructure:"tls_cert_file"`  // TLS证书文件路径
	TLSKeyFile   string `mapstructure:"tls_key_file"`   // TLS私钥文件路径
	AllowOrigins []string `mapstructure:"allow_origins"` // CORS允许的来源
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // 数据库驱动，目前支持sqlite
	DSN             string `mapstructure:"dsn"`               // 数据源名称
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // 最大打开连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`     // 日志级别 (debug, info, warn, error)
	Format   string `mapstructure:"format"`    // 日志格式 (json, text)
	Output   string `mapstructure:"output"`    // 输出方式 (console, file, both)
	FilePath string `mapstructure:"file_path"` // 日志文件路径
}

// GoogleConfig Google OAuth配置
// 用于Gmail授权登录，需要在Google Cloud Console中创建OAuth客户端
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`     // OAuth客户端ID
	ClientSecret string `mapstructure:"client_secret"` // OAuth客户端密钥
	RedirectURL  string `mapstructure:"redirect_url"`  // 授权回调地址
}

// TelegramConfig Telegram机器人配置
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`   // 是否启用Telegram机器人
	BotToken string `mapstructure:"bot_token"` // BotFather下发的机器人令牌
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`      // JWT签名密钥
	TokenTTLHours int    `mapstructure:"token_ttl_hours"` // JWT有效期（小时）
}

// AgentConfig 邮件代理配置
// 控制后台轮询Gmail并自动分类邮件的行为
type AgentConfig struct {
	Enabled      bool `mapstructure:"enabled"`       // 是否启用后台邮件代理
	PollInterval int  `mapstructure:"poll_interval"` // 轮询间隔（秒）
	BatchSize    int  `mapstructure:"batch_size"`    // 每次轮询处理的最大邮件数
}

// Load 加载应用程序配置
// 依次读取配置文件（config.yaml）和环境变量，环境变量优先级更高
// 返回:
//   *Config - 配置实例
//   error - 加载错误
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MAILAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.https_port", 8443)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/mailagent.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file_path", "logs/mailagent.log")

	v.SetDefault("auth.token_ttl_hours", 24)

	v.SetDefault("telegram.enabled", true)

	v.SetDefault("agent.enabled", true)
	v.SetDefault("agent.poll_interval", 60)
	v.SetDefault("agent.batch_size", 20)
}

// validate 校验配置的完整性
func validate(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Server.EnableHTTPS {
		if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
			return fmt.Errorf("tls_cert_file and tls_key_file are required when HTTPS is enabled")
		}
	}
	if cfg.Agent.PollInterval < 10 {
		cfg.Agent.PollInterval = 10
	}
	if cfg.Agent.BatchSize < 1 || cfg.Agent.BatchSize > 100 {
		cfg.Agent.BatchSize = 20
	}
	return nil
}
