// Package router 提供HTTP路由配置
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/weiwangfds/mailagent/config"
	_ "github.com/weiwangfds/mailagent/docs" // swagger docs
	"github.com/weiwangfds/mailagent/internal/handler"
	"github.com/weiwangfds/mailagent/internal/middleware"
	"github.com/weiwangfds/mailagent/internal/service/auth"
	"github.com/weiwangfds/mailagent/internal/service/dashboard"
	"github.com/weiwangfds/mailagent/internal/service/folder"
	"github.com/weiwangfds/mailagent/internal/service/storage"
	"github.com/weiwangfds/mailagent/internal/service/telegram"
	"github.com/weiwangfds/mailagent/internal/service/user"
	"gorm.io/gorm"
)

// Services 路由依赖的业务服务集合
// 服务在main中统一构建，后台组件（机器人、代理）与HTTP层共享同一批实例
type Services struct {
	Auth          auth.AuthService
	User          user.UserService
	Folder        folder.FolderService
	TelegramLink  telegram.LinkService
	Dashboard     dashboard.DashboardService
	StorageConfig storage.ConfigService
	Archive       storage.ArchiveService
}

// Router 路由配置
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
}

// NewRouter 创建路由实例
func NewRouter(loggerMiddleware *middleware.LoggerMiddleware, authMiddleware *middleware.AuthMiddleware, db *gorm.DB, cfg *config.Config, services *Services) *Router {
	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 初始化处理器
	authHandler := handler.NewAuthHandler(services.Auth)
	userHandler := handler.NewUserHandler(services.User)
	folderHandler := handler.NewFolderHandler(services.Folder)
	telegramHandler := handler.NewTelegramHandler(services.TelegramLink)
	dashboardHandler := handler.NewDashboardHandler(services.Dashboard)
	storageHandler := handler.NewStorageHandler(services.StorageConfig, services.Archive)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware.RequestID())
	engine.Use(loggerMiddleware.RequestLogger())

	// 配置CORS
	allowOrigins := cfg.Server.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Swagger文档路由
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Service is running",
		})
	})

	// API路由组
	api := engine.Group("/api/v1")
	{
		// 基础信息接口
		api.GET("/info", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"service": "Mail Agent",
				"version": "1.0.0",
				"status":  "running",
			})
		})

		// 数据库状态检查
		api.GET("/db/status", func(c *gin.Context) {
			sqlDB, err := db.DB()
			if err != nil {
				c.JSON(500, gin.H{
					"error": "Database connection error",
				})
				return
			}

			if err := sqlDB.Ping(); err != nil {
				c.JSON(500, gin.H{
					"error": "Database ping failed",
				})
				return
			}

			c.JSON(200, gin.H{
				"status": "Database connection OK",
			})
		})

		// 认证接口（无需登录）
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/google/login", authHandler.Login)
			authGroup.GET("/google/callback", authHandler.Callback)

			// 认证状态需要有效令牌
			authGroup.GET("/status", authMiddleware.RequireAuth(), authHandler.Status)
		}

		// 需要认证的接口
		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth())
		{
			// 用户管理接口
			users := authed.Group("/users")
			{
				users.GET("/me", userHandler.GetProfile)
				users.PUT("/me", userHandler.UpdateProfile)
				users.POST("/complete-onboarding", userHandler.CompleteOnboarding)
			}

			// 文件夹管理接口
			folders := authed.Group("/folders")
			{
				folders.POST("", folderHandler.CreateFolder)
				folders.GET("", folderHandler.ListFolders)
				folders.POST("/batch", folderHandler.BatchCreateFolders)
				folders.GET("/:id", folderHandler.GetFolder)
				folders.PUT("/:id", folderHandler.UpdateFolder)
				folders.DELETE("/:id", folderHandler.DeleteFolder)
			}

			// Telegram关联接口
			tg := authed.Group("/telegram")
			{
				tg.POST("/link-code", telegramHandler.IssueLinkCode)
				tg.GET("/status", telegramHandler.LinkStatus)
				tg.DELETE("/link", telegramHandler.Unlink)
			}

			// 仪表盘接口
			authed.GET("/dashboard/stats", dashboardHandler.Stats)
			authed.GET("/messages", dashboardHandler.ListMessages)

			// 存储管理接口
			st := authed.Group("/storage")
			{
				st.POST("/configs", storageHandler.CreateConfig)
				st.GET("/configs", storageHandler.ListConfigs)
				st.GET("/configs/:id", storageHandler.GetConfig)
				st.PUT("/configs/:id", storageHandler.UpdateConfig)
				st.DELETE("/configs/:id", storageHandler.DeleteConfig)
				st.POST("/configs/:id/activate", storageHandler.ActivateConfig)
				st.POST("/configs/:id/test", storageHandler.TestConfig)
				st.GET("/archives", storageHandler.ListArchives)
			}
		}
	}

	return &Router{
		engine: engine,
		db:     db,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetDB 获取数据库连接
func (r *Router) GetDB() *gorm.DB {
	return r.db
}
