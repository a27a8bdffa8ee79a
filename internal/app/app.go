package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"course_quiz_backend/internal/config"
	"course_quiz_backend/internal/controller"
	"course_quiz_backend/internal/event"
	"course_quiz_backend/internal/repository"
	"course_quiz_backend/internal/service"
	"course_quiz_backend/pkg/configwatcher"
	"course_quiz_backend/pkg/database"
	"course_quiz_backend/pkg/logger"
	"course_quiz_backend/pkg/monitoring"
	"course_quiz_backend/pkg/security"
	"course_quiz_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Settings *service.QuizSettings

	publisher       event.Publisher
	tracerProvider  *sdktrace.TracerProvider
	limiter         *security.IPLimiter
	configCallbacks []func(*config.Config)
	ctx             context.Context
	cancel          context.CancelFunc
}

type repositories struct {
	quiz     *repository.QuizRepository
	question *repository.QuestionRepository
	attempt  *repository.AttemptRepository
	response *repository.ResponseRepository
}

type services struct {
	pool       *service.QuestionPoolService
	attempt    *service.AttemptService
	submission *service.SubmissionService
}

type controllers struct {
	attempt *controller.QuizAttemptController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		quiz:     repository.NewQuizRepository(db),
		question: repository.NewQuestionRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		response: repository.NewResponseRepository(db),
	}
}

func (a *App) initLocker() service.AttemptLocker {
	if a.Config.Quiz.LockBackend == config.LockBackendRedis && a.Redis != nil {
		return service.NewRedisLocker(a.Redis, a.Config.Quiz.LockTTL())
	}
	return service.NewLocalLocker()
}

func (a *App) initServices(repos *repositories) *services {
	s := &services{}

	s.pool = service.NewQuestionPoolService(repos.quiz, repos.question, repos.attempt, a.Settings)
	s.attempt = service.NewAttemptService(
		a.DB,
		repos.quiz,
		repos.question,
		repos.attempt,
		repos.response,
		a.initLocker(),
		a.publisher,
	)
	s.submission = service.NewSubmissionService(
		a.DB,
		repos.attempt,
		repos.question,
		repos.response,
		a.publisher,
	)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		attempt: controller.NewQuizAttemptController(s.attempt, s.pool, s.submission),
		health:  controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	cfg := a.Config
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.limiter))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// newApp wires an App around already opened stores. rdb may be nil.
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher event.Publisher) *App {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Settings:  service.NewQuizSettings(cfg.Quiz),
		publisher: publisher,
		limiter:   security.NewIPLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute),
		ctx:       ctx,
		cancel:    cancel,
	}
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Settings.Store(newCfg.Quiz)
		logger.Log.Info("Quiz settings reloaded",
			zap.Int("default_questions_to_show", newCfg.Quiz.DefaultQuestionsToShow),
			zap.Bool("pin_random_selection", newCfg.Quiz.PinRandomSelection))
	})

	repos := app.initRepositories(db)
	services := app.initServices(repos)
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router)
	app.registerRoutes(router, controllers)

	go app.limiter.Run(ctx)

	return app
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需要 -migrate 显式开启
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	var rdb *redis.Client
	if cfg.Quiz.LockBackend == config.LockBackendRedis {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.Events.Enabled {
		p, err := event.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Log.Fatal("Failed to connect to message broker", zap.Error(err))
		}
		publisher = p
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := newApp(cfg, db, rdb, publisher)
	app.tracerProvider = tp

	configPath := filepath.Join(cfg.ConfigDir, "config.yaml")
	go func() {
		if err := configwatcher.WatchConfig(app.ctx, configPath, app.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close stops background work and releases the broker, tracer and redis
// connections.
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
