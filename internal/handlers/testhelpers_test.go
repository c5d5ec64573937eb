package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"agrolink/internal/models"
	"agrolink/internal/services"
	"agrolink/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	engine *services.AutomationEngine
	store  storage.Store
}

// newTestEnv 起一个带全部路由的测试环境，模拟已登录的管理员(id=1)
func newTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:handlers_" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Tontine{},
		&models.TontineContribution{},
		&models.MarketPrice{},
		&models.CommunityPost{},
		&models.AutomationRule{},
		&models.AutomationExecution{},
		&models.AdminAuditLog{},
		&models.AdminNotification{},
		&models.AdminWorkflow{},
		&models.AdminSetting{},
		&models.SystemMetric{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	store := storage.NewGormStore(db)
	engine := services.NewAutomationEngine(store, quiet)
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	hub := services.NewNotificationHub()
	go hub.Run()

	router := gin.New()
	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("role", "admin")
		c.Next()
	})

	RegisterTontineRoutes(api, NewTontineHandler(services.NewTontineService(db, quiet, engine)))
	RegisterPriceRoutes(api, NewPriceHandler(services.NewPriceService(db, quiet, engine)))
	RegisterCommunityRoutes(api, NewCommunityHandler(services.NewCommunityService(db, quiet, engine)))

	admin := api.Group("/admin")
	RegisterAutomationRoutes(admin, NewAutomationHandler(engine, store))
	RegisterAdminRoutes(admin, NewAdminHandler(engine, hub, db))

	return &testEnv{router: router, db: db, engine: engine, store: store}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status %d, want %d, body %s", w.Code, want, w.Body.String())
	}
}
