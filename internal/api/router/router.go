package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flyswxf/calendar/config"
	"github.com/flyswxf/calendar/internal/api/handler"
	"github.com/flyswxf/calendar/internal/api/middleware"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/pkg/redis"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流降级放行；db 为 nil 时健康检查跳过数据库
func Setup(cfg *config.Config, h *handler.Handler, db Pinger, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── 健康检查 ──
	r.GET("/health", health(db, rdb))

	limiter := middleware.RateLimit(rdb, cfg.Server.RateLimit, time.Minute)

	// ── 网页端 KV 快照接口（保持原有响应格式）──
	r.Any("/api/data", limiter, h.Sync.Data)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学期信息不区分用户
		v1.GET("/calendar/term", h.Calendar.GetTerm)

		owned := v1.Group("")
		owned.Use(middleware.Owner(), limiter)
		{
			// 待办模块
			tasks := owned.Group("/tasks")
			{
				tasks.GET("", h.Task.ListTasks)
				tasks.POST("", h.Task.AddTask)
				tasks.PUT("", h.Task.ReplaceTasks)
				tasks.POST("/cleanup", h.Task.CleanupTasks)
				tasks.PUT("/:index/toggle", h.Task.ToggleTask)
				tasks.PUT("/:index/complete", h.Task.CompleteTask)
				tasks.DELETE("/:index", h.Task.DeleteTask)
			}

			// 课程模块
			courses := owned.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.POST("", h.Course.CreateCourse)
				courses.POST("/import", h.Course.ImportICS)
				courses.PUT("/:id", h.Course.UpdateCourse)
				courses.DELETE("/:id", h.Course.DeleteCourse)
			}

			// 日历模块
			owned.GET("/calendar/week", h.Calendar.GetWeek)

			// 计时器模块
			timer := owned.Group("/timer")
			{
				timer.GET("", h.Timer.GetStatus)
				timer.POST("/open", h.Timer.Open)
				timer.POST("/start", h.Timer.Start)
				timer.POST("/pause", h.Timer.Pause)
				timer.POST("/resume", h.Timer.Resume)
				timer.POST("/reset", h.Timer.Reset)
				timer.POST("/finish", h.Timer.Finish)
				timer.POST("/stop", h.Timer.Stop)
				timer.POST("/mode", h.Timer.SetMode)
				timer.POST("/countdown", h.Timer.SetCountdown)
			}

			// 专注记录
			owned.GET("/focus-sessions", h.FocusSession.ListFocusSessions)

			// 远程同步
			sync := owned.Group("/sync")
			{
				sync.POST("/pull", h.Sync.Pull)
				sync.POST("/push", h.Sync.Push)
			}

			// 导出模块
			owned.GET("/export/focus-sessions", h.Export.ExportFocusSessions)
		}
	}

	return r
}

// health 返回各依赖的连通状态，数据库不可用时为 503
func health(db Pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{"status": "ok", "db": "disabled", "redis": "disabled"}
		if db != nil {
			result["db"] = "ok"
			if err := db.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result["db"] = "unreachable"
			}
		}
		if rdb != nil {
			result["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				result["redis"] = "unreachable"
			}
		}
		c.JSON(status, result)
	}
}
