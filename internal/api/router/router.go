package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emis-vote/backend/config"
	"emis-vote/backend/internal/api/handler"
	"emis-vote/backend/internal/api/middleware"
	"emis-vote/backend/internal/api/validate"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/pkg/jwt"
	"emis-vote/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时登出黑名单与限流均降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := validate.Register(); err != nil {
		return nil, err
	}

	// 避免把 typed nil 装进接口
	var (
		blacklist middleware.TokenChecker
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		if cfg.RateLimit.Enabled {
			limiter = rdb
		}
	}
	rateLimit := middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	adminOnly := middleware.RoleAuth(model.RoleAdmin)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders(cfg.Auth.Cookie.Secure))
	r.Use(middleware.BodyLimit(int64(cfg.Server.BodyLimitMB) << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 海报/照片静态文件 ──
	r.Static(cfg.Upload.PublicPath, cfg.Upload.Dir)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", rateLimit, h.Auth.Login)
			auth.POST("/register", rateLimit, h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/profile", h.Auth.UpdateProfile)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户管理（管理员）
			users := authorized.Group("/users", adminOnly)
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.POST("", h.User.Create)
				users.DELETE("/:id", h.User.Delete)
				users.POST("/import", h.User.Import)
			}

			// 活动模块
			events := authorized.Group("/events")
			{
				events.GET("", h.Event.List)
				events.GET("/:id", h.Event.Get)
				events.GET("/:id/calendar", h.Event.Calendar)
				events.POST("", adminOnly, h.Event.Create)
				events.PUT("/:id", adminOnly, h.Event.Update)
				events.DELETE("/:id", adminOnly, h.Event.Delete)
				events.GET("/:id/participants", adminOnly, h.Event.Participants)
				events.GET("/:id/participants/export", adminOnly, h.Report.ExportParticipants)
			}

			// 报名模块
			registrations := authorized.Group("/registrations")
			{
				registrations.POST("", rateLimit, h.Registration.Register)
				registrations.GET("/check", h.Registration.Check)
				registrations.GET("/me", h.Registration.Mine)
			}

			// 投票模块
			votings := authorized.Group("/votings")
			{
				votings.GET("", h.Voting.List)
				votings.GET("/:id", h.Voting.Get)
				votings.GET("/:id/results", h.Vote.Results)
				votings.POST("", adminOnly, h.Voting.Create)
				votings.PUT("/:id", adminOnly, h.Voting.Update)
				votings.DELETE("/:id", adminOnly, h.Voting.Delete)
				votings.GET("/:id/results/export", adminOnly, h.Report.ExportResults)

				votings.GET("/:id/options", h.Voting.ListOptions)
				votings.POST("/:id/options", adminOnly, h.Voting.CreateOption)
				votings.PUT("/:id/options/:optId", adminOnly, h.Voting.UpdateOption)
				votings.DELETE("/:id/options/:optId", adminOnly, h.Voting.DeleteOption)
			}

			// 选票模块
			votes := authorized.Group("/votes")
			{
				votes.POST("", rateLimit, h.Vote.Submit)
				votes.GET("/check", h.Vote.Status)
			}

			// 统计报表
			authorized.GET("/reports/summary", adminOnly, h.Report.Summary)
		}
	}

	return r, nil
}
