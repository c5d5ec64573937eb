package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrolink/internal/config"
	"agrolink/internal/handlers"
	"agrolink/internal/middleware"
	"agrolink/internal/models"
	"agrolink/internal/observability"
	"agrolink/internal/seed"
	"agrolink/internal/services"
	"agrolink/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the AgroLink backend",
	Long:  `Run the AgroLink backend`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// RunServer starts the backend without going through the CLI parser. The
// caller is expected to have pointed viper at a config source already.
func RunServer() {
	run(nil, nil)
}

func run(cmd *cobra.Command, args []string) {
	// 加载配置并初始化日志
	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	config.Watch()
	appLogger := logrus.StandardLogger()

	// OpenTelemetry 初始化（可选）
	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		logrus.Warnf("init tracing: %v", err)
	}

	// 初始化数据库
	db := openDatabase(cfg, appLogger)
	if cfg.Monitoring.Tracing.Enabled {
		if err := db.Use(gormtracing.NewPlugin()); err != nil {
			appLogger.Warnf("gorm tracing plugin: %v", err)
		}
	}
	migrate(db, appLogger)

	store := storage.NewGormStore(db)

	// 规则引擎：加载失败直接退出，不在空缓存上运行
	engine := services.NewAutomationEngine(store, appLogger)
	if err := engine.Initialize(context.Background()); err != nil {
		appLogger.Fatalf("Failed to load automation rules: %v", err)
	}

	if cfg.Automation.SeedOnStartup && cfg.Automation.SeedFile != "" {
		applySeed(db, engine, appLogger, cfg.Automation.SeedFile)
	}

	// 实时通知
	hub := services.NewNotificationHub()
	engine.SetNotifier(hub)
	go hub.Run()

	// 业务服务
	tontineService := services.NewTontineService(db, appLogger, engine)
	priceService := services.NewPriceService(db, appLogger, engine)
	communityService := services.NewCommunityService(db, appLogger, engine)

	// 设置 Gin 模式
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		router.Use(otelgin.Middleware("agrolink"))
	}

	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.Health)
	if cfg.Monitoring.Enabled {
		path := cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterTontineRoutes(api, handlers.NewTontineHandler(tontineService))
	handlers.RegisterPriceRoutes(api, handlers.NewPriceHandler(priceService))
	handlers.RegisterCommunityRoutes(api, handlers.NewCommunityHandler(communityService))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	handlers.RegisterAutomationRoutes(admin, handlers.NewAutomationHandler(engine, store))
	handlers.RegisterAdminRoutes(admin, handlers.NewAdminHandler(engine, hub, db))

	// 每日指标后台任务
	go metricsWorker(engine, appLogger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("AgroLink listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
	appLogger.Info("Server stopped")
}

func openDatabase(cfg *config.Config, appLogger *logrus.Logger) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	return db
}

func migrate(db *gorm.DB, appLogger *logrus.Logger) {
	if err := db.AutoMigrate(
		&models.User{}, &models.Tontine{}, &models.TontineContribution{},
		&models.MarketPrice{}, &models.CommunityPost{},
		&models.AutomationRule{}, &models.AutomationExecution{},
		&models.AdminAuditLog{}, &models.AdminNotification{},
		&models.AdminWorkflow{}, &models.AdminSetting{}, &models.SystemMetric{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}
}

func applySeed(db *gorm.DB, engine *services.AutomationEngine, appLogger *logrus.Logger, path string) {
	file, err := seed.Load(path)
	if err != nil {
		appLogger.Warnf("seed: %v", err)
		return
	}
	inserted, err := seed.Apply(context.Background(), db, appLogger, file)
	if err != nil {
		appLogger.Warnf("seed: %v", err)
		return
	}
	if inserted > 0 {
		if err := engine.Initialize(context.Background()); err != nil {
			appLogger.Warnf("seed: reload rules: %v", err)
		}
	}
}

// metricsWorker 每天跑一次日指标
func metricsWorker(engine *services.AutomationEngine, appLogger *logrus.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		written := engine.GenerateSystemMetrics(context.Background())
		appLogger.Infof("metrics worker: wrote %d system metrics", written)
	}
}
