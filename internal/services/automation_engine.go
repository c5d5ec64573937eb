package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"agrolink/internal/metrics"
	"agrolink/internal/models"
	"agrolink/internal/storage"

	"github.com/sirupsen/logrus"
)

// Notifier receives admin notifications created by automation actions, so
// connected admin consoles can be pushed in real time.
type Notifier interface {
	Notify(n *models.AdminNotification)
}

// AutomationEngine 管理后台自动化规则引擎
//
// Rules are cached in memory grouped by rule type and sorted by priority.
// The cache map is always rebuilt off to the side and swapped whole, so a
// concurrent ExecuteRules sees either the old or the new cache, never a
// half-built one.
type AutomationEngine struct {
	store    storage.Store
	logger   *logrus.Logger
	notifier Notifier

	mu    sync.RWMutex
	rules map[string][]models.AutomationRule
}

func NewAutomationEngine(store storage.Store, logger *logrus.Logger) *AutomationEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationEngine{
		store:  store,
		logger: logger,
		rules:  make(map[string][]models.AutomationRule),
	}
}

// SetNotifier wires the realtime notification hub. Optional.
func (e *AutomationEngine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Initialize loads all active rules, groups them by rule type and sorts each
// group by priority descending, ties keeping insertion order. Re-entrant: the
// whole cache is rebuilt on every call. On a load failure the previous cache
// is kept and the error is returned to the caller.
func (e *AutomationEngine) Initialize(ctx context.Context) error {
	rules, err := e.store.GetActiveAutomationRules(ctx)
	if err != nil {
		e.logger.Errorf("automation: load rules failed: %v", err)
		return fmt.Errorf("load automation rules: %w", err)
	}

	cache := make(map[string][]models.AutomationRule)
	for _, rule := range rules {
		cache[rule.RuleType] = append(cache[rule.RuleType], rule)
	}
	for ruleType := range cache {
		group := cache[ruleType]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority > group[j].Priority
		})
	}

	e.mu.Lock()
	e.rules = cache
	e.mu.Unlock()

	metrics.CacheRules.Set(float64(len(rules)))
	e.logger.Infof("automation: cache loaded, %d active rules in %d types", len(rules), len(cache))
	return nil
}

// rulesForType returns the cached, priority-sorted group for a rule type.
func (e *AutomationEngine) rulesForType(ruleType string) []models.AutomationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules[ruleType]
}

// AutomationRuleRequest 创建规则的请求
type AutomationRuleRequest struct {
	RuleType    string                   `json:"rule_type" binding:"required"`
	RuleName    string                   `json:"rule_name" binding:"required"`
	Description string                   `json:"description"`
	Conditions  map[string]interface{}   `json:"conditions"`
	Actions     []map[string]interface{} `json:"actions"`
	Priority    int                      `json:"priority"`
	IsActive    *bool                    `json:"is_active"`
	CreatedBy   uint                     `json:"created_by"`
}

// AutomationRuleUpdate 规则更新请求，空字段不变
type AutomationRuleUpdate struct {
	Description *string                  `json:"description"`
	Conditions  map[string]interface{}   `json:"conditions"`
	Actions     []map[string]interface{} `json:"actions"`
	Priority    *int                     `json:"priority"`
	IsActive    *bool                    `json:"is_active"`
}

// CreateRule persists a rule and unconditionally reloads the cache.
func (e *AutomationEngine) CreateRule(ctx context.Context, req *AutomationRuleRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	if !isSupportedRuleType(req.RuleType) {
		return nil, fmt.Errorf("unsupported rule type: %s", req.RuleType)
	}

	condJSON, err := json.Marshal(req.Conditions)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule := &models.AutomationRule{
		RuleType:    req.RuleType,
		RuleName:    req.RuleName,
		Description: req.Description,
		Conditions:  string(condJSON),
		Actions:     string(actJSON),
		IsActive:    active,
		Priority:    req.Priority,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := e.store.CreateAutomationRule(ctx, rule); err != nil {
		return nil, err
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule applies a partial update and reloads the cache.
func (e *AutomationEngine) UpdateRule(ctx context.Context, id uint, req *AutomationRuleUpdate) error {
	if req == nil {
		return fmt.Errorf("request required")
	}
	patch := map[string]interface{}{"updated_at": time.Now()}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Conditions != nil {
		condJSON, err := json.Marshal(req.Conditions)
		if err != nil {
			return fmt.Errorf("invalid conditions: %w", err)
		}
		patch["conditions"] = string(condJSON)
	}
	if req.Actions != nil {
		actJSON, err := json.Marshal(req.Actions)
		if err != nil {
			return fmt.Errorf("invalid actions: %w", err)
		}
		patch["actions"] = string(actJSON)
	}
	if req.Priority != nil {
		patch["priority"] = *req.Priority
	}
	if req.IsActive != nil {
		patch["is_active"] = *req.IsActive
	}
	if err := e.store.UpdateAutomationRule(ctx, id, patch); err != nil {
		return err
	}
	return e.Initialize(ctx)
}

// DeleteRule removes a rule and reloads the cache.
func (e *AutomationEngine) DeleteRule(ctx context.Context, id uint) error {
	if err := e.store.DeleteAutomationRule(ctx, id); err != nil {
		return err
	}
	return e.Initialize(ctx)
}

// ExecuteRules evaluates every active cached rule of the given type against
// the trigger data, highest priority first. Matched rules execute their
// actions sequentially and produce exactly one execution record each, failed
// or not; rules that do not match leave no trace. An error in one rule never
// stops the remaining rules.
func (e *AutomationEngine) ExecuteRules(ctx context.Context, ruleType, entityType string, entityID uint, trigger map[string]interface{}) []models.AutomationExecution {
	executions := []models.AutomationExecution{}
	for _, rule := range e.rulesForType(ruleType) {
		if !rule.IsActive {
			continue
		}
		metrics.RulesEvaluated.WithLabelValues(ruleType).Inc()

		start := time.Now()
		conds, err := parseConditions(rule.Conditions)
		if err != nil {
			executions = append(executions, e.record(ctx, rule, entityType, entityID, trigger, nil, start, err))
			continue
		}
		if !evalConditions(conds, trigger) {
			continue
		}
		metrics.RulesMatched.WithLabelValues(ruleType).Inc()

		var actions []map[string]interface{}
		if rule.Actions != "" {
			if err := json.Unmarshal([]byte(rule.Actions), &actions); err != nil {
				executions = append(executions, e.record(ctx, rule, entityType, entityID, trigger, nil,
					start, fmt.Errorf("invalid actions: %w", err)))
				continue
			}
		}
		results := e.executeActions(ctx, actions, entityType, entityID, trigger)
		executions = append(executions, e.record(ctx, rule, entityType, entityID, trigger, results, start, nil))
	}
	return executions
}

// record builds and persists one execution record. A storage failure is
// logged; the record is still returned so the caller sees the outcome.
func (e *AutomationEngine) record(ctx context.Context, rule models.AutomationRule, entityType string, entityID uint, trigger map[string]interface{}, results []ActionResult, start time.Time, ruleErr error) models.AutomationExecution {
	triggerJSON, _ := json.Marshal(trigger)
	exec := models.AutomationExecution{
		RuleID:        rule.ID,
		EntityType:    entityType,
		EntityID:      entityID,
		TriggerData:   string(triggerJSON),
		ExecutionTime: time.Since(start).Milliseconds(),
		CreatedAt:     time.Now(),
	}
	if ruleErr != nil {
		exec.Success = false
		exec.ErrorMessage = ruleErr.Error()
		exec.ActionsTaken = "[]"
		metrics.ExecutionsRecorded.WithLabelValues("failed").Inc()
	} else {
		exec.Success = true
		taken, _ := json.Marshal(results)
		exec.ActionsTaken = string(taken)
		metrics.ExecutionsRecorded.WithLabelValues("success").Inc()
	}
	metrics.RuleDuration.Observe(float64(exec.ExecutionTime))

	if err := e.store.CreateAutomationExecution(ctx, &exec); err != nil {
		e.logger.Warnf("automation: record execution for rule %d failed: %v", rule.ID, err)
	}
	return exec
}

// ProcessTontineApproval 互助会创建后的审批触发
func (e *AutomationEngine) ProcessTontineApproval(ctx context.Context, tontine *models.Tontine) []models.AutomationExecution {
	trigger := map[string]interface{}{
		"name":                tontine.Name,
		"region":              tontine.Region,
		"creator_id":          float64(tontine.CreatorID),
		"contribution_amount": tontine.ContributionAmount,
		"frequency":           tontine.Frequency,
		"max_members":         float64(tontine.MaxMembers),
		"status":              tontine.Status,
	}
	return e.ExecuteRules(ctx, "tontine_approval", "tontine", tontine.ID, trigger)
}

// ProcessPriceValidation 价格上报后的校验触发
func (e *AutomationEngine) ProcessPriceValidation(ctx context.Context, price *models.MarketPrice) []models.AutomationExecution {
	trigger := map[string]interface{}{
		"crop":         price.Crop,
		"market":       price.Market,
		"region":       price.Region,
		"unit":         price.Unit,
		"submitted_by": float64(price.SubmittedBy),
		"is_verified":  price.IsVerified,
		"price": map[string]interface{}{
			"value": price.Value,
		},
	}
	return e.ExecuteRules(ctx, "price_validation", "price", price.ID, trigger)
}

// ProcessUserModeration 用户行为触发（举报、异常活动）
func (e *AutomationEngine) ProcessUserModeration(ctx context.Context, user *models.User, activity map[string]interface{}) []models.AutomationExecution {
	trigger := map[string]interface{}{
		"role":         user.Role,
		"status":       user.Status,
		"region":       user.Region,
		"premium":      user.Premium,
		"report_count": float64(user.ReportCount),
	}
	for k, v := range activity {
		trigger[k] = v
	}
	return e.ExecuteRules(ctx, "user_moderation", "user", user.ID, trigger)
}

// ProcessContentFilter 帖子创建后的内容过滤触发
func (e *AutomationEngine) ProcessContentFilter(ctx context.Context, post *models.CommunityPost) []models.AutomationExecution {
	trigger := map[string]interface{}{
		"author_id":      float64(post.AuthorID),
		"category":       post.Category,
		"region":         post.Region,
		"status":         post.Status,
		"content":        post.Content,
		"content_length": float64(len(post.Content)),
		"report_count":   float64(post.ReportCount),
	}
	return e.ExecuteRules(ctx, "content_filter", "post", post.ID, trigger)
}

func isSupportedRuleType(ruleType string) bool {
	switch ruleType {
	case "tontine_approval", "price_validation", "user_moderation", "content_filter":
		return true
	default:
		return false
	}
}
