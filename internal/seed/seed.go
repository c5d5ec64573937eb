package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"agrolink/internal/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// RuleFile 默认规则文件结构
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec 单条规则：conditions/actions 与存储 JSON 同构
type RuleSpec struct {
	RuleType    string                   `yaml:"rule_type"`
	RuleName    string                   `yaml:"rule_name"`
	Description string                   `yaml:"description"`
	Priority    int                      `yaml:"priority"`
	IsActive    *bool                    `yaml:"is_active"`
	Conditions  map[string]interface{}   `yaml:"conditions"`
	Actions     []map[string]interface{} `yaml:"actions"`
}

// Load parses a YAML rule file.
func Load(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, rule := range file.Rules {
		if rule.RuleType == "" || rule.RuleName == "" {
			return nil, fmt.Errorf("seed rule %d: rule_type and rule_name are required", i)
		}
	}
	return &file, nil
}

// Apply inserts every rule whose rule_name does not exist yet. Existing rules
// are never touched: operators may have edited them in the console.
func Apply(ctx context.Context, db *gorm.DB, logger *logrus.Logger, file *RuleFile) (int, error) {
	if logger == nil {
		logger = logrus.New()
	}
	inserted := 0
	for _, spec := range file.Rules {
		var count int64
		if err := db.WithContext(ctx).Model(&models.AutomationRule{}).
			Where("rule_name = ?", spec.RuleName).
			Count(&count).Error; err != nil {
			return inserted, err
		}
		if count > 0 {
			continue
		}

		condJSON, err := json.Marshal(spec.Conditions)
		if err != nil {
			return inserted, fmt.Errorf("rule %s: invalid conditions: %w", spec.RuleName, err)
		}
		actJSON, err := json.Marshal(spec.Actions)
		if err != nil {
			return inserted, fmt.Errorf("rule %s: invalid actions: %w", spec.RuleName, err)
		}
		active := true
		if spec.IsActive != nil {
			active = *spec.IsActive
		}

		rule := &models.AutomationRule{
			RuleType:    spec.RuleType,
			RuleName:    spec.RuleName,
			Description: spec.Description,
			Conditions:  string(condJSON),
			Actions:     string(actJSON),
			IsActive:    active,
			Priority:    spec.Priority,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := db.WithContext(ctx).Create(rule).Error; err != nil {
			return inserted, fmt.Errorf("rule %s: %w", spec.RuleName, err)
		}
		logger.Infof("seed: inserted rule %s (%s)", spec.RuleName, spec.RuleType)
		inserted++
	}
	return inserted, nil
}
