package routes

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/controllers"
	"github.com/cppla/viewlog/middleware"
	"github.com/cppla/viewlog/report"
	"github.com/cppla/viewlog/templates"
	"github.com/cppla/viewlog/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, reports *report.Generator) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())

	// Access log goes to its own rolling file when GinPath is set
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(ginzap.GinzapWithConfig(gl, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Context:    requestIDField,
		}))
		r.Use(ginzap.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.SetHTMLTemplate(mustTemplates())

	pageController := controllers.NewPageController()
	viewController := controllers.NewViewController(db)
	adminController := controllers.NewAdminController(db, reports)

	r.Static("/media", cfg.MediaDir)
	r.GET("/video", pageController.Video)
	r.GET("/favicon.ico", pageController.Favicon)

	r.GET("/", pageController.Index)
	r.GET("/watch", pageController.Watch)
	r.POST("/submit", middleware.RateLimitMiddleware(), viewController.Submit)
	r.GET("/submitted", pageController.Submitted)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(utils.MetricsHandler()))

	admin := r.Group("/admin")
	admin.GET("/login", adminController.LoginPage)
	admin.POST("/login", middleware.RateLimitMiddleware(), adminController.Login)
	admin.POST("/logout", adminController.Logout)

	secured := admin.Group("", middleware.AdminRequired())
	secured.GET("", adminController.Page)
	secured.GET("/preview", adminController.Preview)
	secured.GET("/export", adminController.Export)

	api := r.Group("/api/v1")
	api.GET("/views", middleware.AdminRequired(), viewController.List)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.PlainError(ctx, http.StatusNotFound, "ページが見つかりません。")
	})

	return r
}

// requestIDField tags access log lines with the id set by middleware.RequestID.
func requestIDField(ctx *gin.Context) []zapcore.Field {
	return []zapcore.Field{zap.String("request_id", ctx.GetString(middleware.ContextRequestIDKey))}
}

func mustTemplates() *template.Template {
	tmpl, err := templates.Load()
	if err != nil {
		panic(fmt.Sprintf("parse templates: %v", err))
	}
	return tmpl
}
