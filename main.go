// @title Mail Agent API
// @version 1.0
// @description Gmail邮件分类与通知代理服务
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/http2"

	"github.com/weiwangfds/mailagent/config"
	"github.com/weiwangfds/mailagent/internal/database"
	"github.com/weiwangfds/mailagent/internal/logger"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/router"
	agentservice "github.com/weiwangfds/mailagent/internal/service/agent"
	authservice "github.com/weiwangfds/mailagent/internal/service/auth"
	dashboardservice "github.com/weiwangfds/mailagent/internal/service/dashboard"
	folderservice "github.com/weiwangfds/mailagent/internal/service/folder"
	gmailservice "github.com/weiwangfds/mailagent/internal/service/gmail"
	storageservice "github.com/weiwangfds/mailagent/internal/service/storage"
	telegramservice "github.com/weiwangfds/mailagent/internal/service/telegram"
	userservice "github.com/weiwangfds/mailagent/internal/service/user"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志系统
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化认证组件
	tokenManager := authservice.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours)
	oauthConfig := authservice.NewOAuthConfig(cfg.Google)
	gmailFactory := gmailservice.NewClientFactory(db, oauthConfig)

	// 初始化业务服务
	authSvc := authservice.NewAuthService(db, oauthConfig, tokenManager, cfg.Auth.JWTSecret)
	folderSvc := folderservice.NewFolderService(db, gmailFactory)
	userSvc := userservice.NewUserService(db, folderSvc)
	dashboardSvc := dashboardservice.NewDashboardService(db)
	storageConfigSvc := storageservice.NewConfigService(db)
	archiveSvc := storageservice.NewArchiveService(db, storageConfigSvc)
	linkSvc := telegramservice.NewLinkService(db, "")

	// 初始化Telegram机器人（可选）
	var botSvc telegramservice.BotService
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		botSvc, err = telegramservice.NewBotService(db, linkSvc, cfg.Telegram.BotToken)
		if err != nil {
			logger.Errorf("Telegram机器人初始化失败，通知功能不可用: %v", err)
			botSvc = nil
		} else {
			linkSvc.SetBotName(botSvc.BotUserName())
		}
	}

	// 初始化邮件代理
	var notifier telegramservice.Notifier
	if botSvc != nil {
		notifier = botSvc
	}
	agentSvc := agentservice.NewAgentService(db, cfg.Agent, gmailFactory, notifier, archiveSvc)

	// 初始化中间件
	loggerMiddleware := middleware.NewLoggerMiddleware(logger.GetLogger())
	authMiddleware := middleware.NewAuthMiddleware(tokenManager, db)

	// 初始化路由
	r := router.NewRouter(loggerMiddleware, authMiddleware, db, cfg, &router.Services{
		Auth:          authSvc,
		User:          userSvc,
		Folder:        folderSvc,
		TelegramLink:  linkSvc,
		Dashboard:     dashboardSvc,
		StorageConfig: storageConfigSvc,
		Archive:       archiveSvc,
	})

	// 启动后台服务
	if botSvc != nil {
		if err := botSvc.Start(); err != nil {
			logger.Errorf("Telegram机器人启动失败: %v", err)
		}
	}
	if cfg.Agent.Enabled {
		if err := agentSvc.Start(); err != nil {
			logger.Errorf("邮件代理启动失败: %v", err)
		}
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Handler:      r.GetEngine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		if cfg.Server.EnableHTTPS {
			srv.Addr = ":" + strconv.Itoa(cfg.Server.HTTPSPort)
			srv.TLSConfig = &tls.Config{
				NextProtos: []string{"h2", "http/1.1"},
			}
			if cfg.Server.EnableHTTP2 {
				if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
					logger.Fatalf("配置HTTP/2失败: %v", err)
				}
			}

			logger.Infof("HTTPS服务器启动在端口 %d (HTTP/2: %v)", cfg.Server.HTTPSPort, cfg.Server.EnableHTTP2)
			if err := srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("HTTPS服务器启动失败: %v", err)
			}
		} else {
			srv.Addr = ":" + strconv.Itoa(cfg.Server.Port)
			logger.Infof("HTTP服务器启动在端口 %d", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("HTTP服务器启动失败: %v", err)
			}
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	// 停止后台服务
	agentSvc.Stop()
	if botSvc != nil {
		botSvc.Stop()
	}

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("服务器强制关闭: %v", err)
	}

	logger.Info("服务器已退出")
}
