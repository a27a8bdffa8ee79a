package app

import (
	"course_quiz_backend/docs"
	"course_quiz_backend/internal/middleware"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config))
	{
		a.registerQuizRoutes(authGroup, c)
		a.registerAttemptRoutes(authGroup, c)
	}
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers) {
	quizzes := group.Group("/quizzes/:quizId")
	{
		quizzes.POST("/attempts", c.attempt.CreateAttempt)
		quizzes.GET("/attempts", c.attempt.ListAttempts)
		quizzes.GET("/attempts/:attemptNumber/questions", c.attempt.GetQuestions)
	}
}

func (a *App) registerAttemptRoutes(group *gin.RouterGroup, c *controllers) {
	attempts := group.Group("/attempts/:attemptId")
	{
		attempts.GET("", c.attempt.GetAttempt)
		attempts.GET("/result", c.attempt.GetResult)
		attempts.POST("/abandon", c.attempt.AbandonAttempt)
		attempts.POST("/submit", c.attempt.Submit)
		attempts.POST("/submit-timeout", c.attempt.SubmitOnTimeout)
	}

	// 成绩快照只能由评分流程或管理员写入
	admin := group.Group("/attempts/:attemptId")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.PATCH("", c.attempt.UpdateAttempt)
		admin.POST("/complete", c.attempt.CompleteAttempt)
		admin.POST("/timeout", c.attempt.TimeoutAttempt)
	}
}
