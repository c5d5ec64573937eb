package storage

import (
	"context"
	"fmt"
	"time"

	"agrolink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 gorm 的持久化实现
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for migrations and seeding.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) GetActiveAutomationRules(ctx context.Context) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormStore) GetAutomationRules(ctx context.Context, filter RuleFilter) ([]models.AutomationRule, error) {
	q := s.db.WithContext(ctx).Model(&models.AutomationRule{})
	if filter.RuleType != "" {
		q = q.Where("rule_type = ?", filter.RuleType)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	var rules []models.AutomationRule
	if err := q.Order("priority DESC, id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormStore) CreateAutomationRule(ctx context.Context, rule *models.AutomationRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *GormStore) UpdateAutomationRule(ctx context.Context, id uint, patch map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.AutomationRule{}).
		Where("id = ?", id).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule not found")
	}
	return nil
}

func (s *GormStore) DeleteAutomationRule(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.AutomationRule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule not found")
	}
	return nil
}

func (s *GormStore) CreateAutomationExecution(ctx context.Context, exec *models.AutomationExecution) error {
	return s.db.WithContext(ctx).Create(exec).Error
}

func (s *GormStore) GetAutomationExecutions(ctx context.Context, filter ExecutionFilter) ([]models.AutomationExecution, error) {
	q := s.db.WithContext(ctx).Model(&models.AutomationExecution{})
	if filter.RuleID != 0 {
		q = q.Where("rule_id = ?", filter.RuleID)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var execs []models.AutomationExecution
	if err := q.Order("id DESC").Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}

func (s *GormStore) UpdateTontine(ctx context.Context, id uint, patch map[string]interface{}) error {
	return s.updateByID(ctx, &models.Tontine{}, id, patch)
}

func (s *GormStore) UpdateMarketPrice(ctx context.Context, id uint, patch map[string]interface{}) error {
	return s.updateByID(ctx, &models.MarketPrice{}, id, patch)
}

func (s *GormStore) UpdateCommunityPost(ctx context.Context, id uint, patch map[string]interface{}) error {
	return s.updateByID(ctx, &models.CommunityPost{}, id, patch)
}

func (s *GormStore) UpdateUser(ctx context.Context, id uint, patch map[string]interface{}) error {
	return s.updateByID(ctx, &models.User{}, id, patch)
}

func (s *GormStore) updateByID(ctx context.Context, model interface{}, id uint, patch map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Updates(patch).Error
}

func (s *GormStore) CreateAdminNotification(ctx context.Context, n *models.AdminNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) CreateAdminWorkflow(ctx context.Context, w *models.AdminWorkflow) error {
	return s.db.WithContext(ctx).Create(w).Error
}

// UpsertAdminSetting 按 setting_key 覆盖写入
func (s *GormStore) UpsertAdminSetting(ctx context.Context, key string, setting *models.AdminSetting) error {
	setting.SettingKey = key
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "category", "updated_at"}),
		}).
		Create(setting).Error
}

func (s *GormStore) CreateSystemMetric(ctx context.Context, m *models.SystemMetric) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormStore) CreateAdminAuditLog(ctx context.Context, l *models.AdminAuditLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *GormStore) UserCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *GormStore) ActiveUserCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ?", "active").Count(&n).Error
	return n, err
}

func (s *GormStore) NewUserCount(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (s *GormStore) TontineCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Tontine{}).Count(&n).Error
	return n, err
}

func (s *GormStore) ActiveTontineCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Tontine{}).
		Where("status = ?", "active").Count(&n).Error
	return n, err
}

func (s *GormStore) TotalContributions(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&models.TontineContribution{}).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&total)
	return total, err
}

func (s *GormStore) AutomationExecutionCount(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.AutomationExecution{}).
		Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (s *GormStore) SuccessfulAutomationCount(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.AutomationExecution{}).
		Where("created_at >= ? AND success = ?", since, true).Count(&n).Error
	return n, err
}

func (s *GormStore) CommunityPosts(ctx context.Context, region string, limit int) ([]models.CommunityPost, error) {
	q := s.db.WithContext(ctx).Model(&models.CommunityPost{})
	if region != "" {
		q = q.Where("region = ?", region)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var posts []models.CommunityPost
	if err := q.Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) TontinePayments(ctx context.Context, tontineID uint) ([]models.TontineContribution, error) {
	var payments []models.TontineContribution
	if err := s.db.WithContext(ctx).
		Where("tontine_id = ?", tontineID).
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
