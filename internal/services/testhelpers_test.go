package services

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"agrolink/internal/models"
	"agrolink/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试用独立的内存库，避免互相污染
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := "file:automation_" + name + "?mode=memory&cache=shared"
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
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(t *testing.T, name string) (*AutomationEngine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t, name)
	engine := NewAutomationEngine(storage.NewGormStore(db), quietLogger())
	return engine, db
}

// mustRule 直接写库，测试方自行调用 Initialize
func mustRule(t *testing.T, db *gorm.DB, ruleType, ruleName string, conditions map[string]interface{}, actions []map[string]interface{}, priority int, active bool) *models.AutomationRule {
	t.Helper()

	condJSON, err := json.Marshal(conditions)
	if err != nil {
		t.Fatalf("marshal conditions: %v", err)
	}
	actJSON, err := json.Marshal(actions)
	if err != nil {
		t.Fatalf("marshal actions: %v", err)
	}
	rule := &models.AutomationRule{
		RuleType:   ruleType,
		RuleName:   ruleName,
		Conditions: string(condJSON),
		Actions:    string(actJSON),
		IsActive:   active,
		Priority:   priority,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return rule
}

func mustInitialize(t *testing.T, engine *AutomationEngine) {
	t.Helper()
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}
