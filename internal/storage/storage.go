package storage

import (
	"context"
	"time"

	"agrolink/internal/models"
)

// RuleFilter narrows rule listings for the admin console.
type RuleFilter struct {
	RuleType string
	Active   *bool
}

// ExecutionFilter narrows execution listings.
type ExecutionFilter struct {
	RuleID     uint
	EntityType string
	Since      *time.Time
	Limit      int
}

// Store is the persistence collaborator consumed by the automation engine
// and the admin handlers. The production implementation is gorm/Postgres;
// tests run the same implementation against sqlite.
type Store interface {
	// automation rules / executions
	GetActiveAutomationRules(ctx context.Context) ([]models.AutomationRule, error)
	GetAutomationRules(ctx context.Context, filter RuleFilter) ([]models.AutomationRule, error)
	CreateAutomationRule(ctx context.Context, rule *models.AutomationRule) error
	UpdateAutomationRule(ctx context.Context, id uint, patch map[string]interface{}) error
	DeleteAutomationRule(ctx context.Context, id uint) error
	CreateAutomationExecution(ctx context.Context, exec *models.AutomationExecution) error
	GetAutomationExecutions(ctx context.Context, filter ExecutionFilter) ([]models.AutomationExecution, error)

	// entity state patches issued by automation actions
	UpdateTontine(ctx context.Context, id uint, patch map[string]interface{}) error
	UpdateMarketPrice(ctx context.Context, id uint, patch map[string]interface{}) error
	UpdateCommunityPost(ctx context.Context, id uint, patch map[string]interface{}) error
	UpdateUser(ctx context.Context, id uint, patch map[string]interface{}) error

	// admin records
	CreateAdminNotification(ctx context.Context, n *models.AdminNotification) error
	CreateAdminWorkflow(ctx context.Context, w *models.AdminWorkflow) error
	UpsertAdminSetting(ctx context.Context, key string, setting *models.AdminSetting) error
	CreateSystemMetric(ctx context.Context, m *models.SystemMetric) error
	CreateAdminAuditLog(ctx context.Context, l *models.AdminAuditLog) error

	// read aggregates for metrics and the dashboard
	UserCount(ctx context.Context) (int64, error)
	ActiveUserCount(ctx context.Context) (int64, error)
	NewUserCount(ctx context.Context, since time.Time) (int64, error)
	TontineCount(ctx context.Context) (int64, error)
	ActiveTontineCount(ctx context.Context) (int64, error)
	TotalContributions(ctx context.Context) (float64, error)
	AutomationExecutionCount(ctx context.Context, since time.Time) (int64, error)
	SuccessfulAutomationCount(ctx context.Context, since time.Time) (int64, error)
	CommunityPosts(ctx context.Context, region string, limit int) ([]models.CommunityPost, error)
	TontinePayments(ctx context.Context, tontineID uint) ([]models.TontineContribution, error)
}
