package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrolink/internal/metrics"
	"agrolink/internal/models"
)

// ActionResult 单个动作的执行结果
type ActionResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// executeActions runs the action list strictly in array order; a failing
// action is converted into a failure result and never aborts the batch.
func (e *AutomationEngine) executeActions(ctx context.Context, actions []map[string]interface{}, entityType string, entityID uint, trigger map[string]interface{}) []ActionResult {
	results := make([]ActionResult, 0, len(actions))
	for _, act := range actions {
		actType, _ := act["type"].(string)
		err := e.runAction(ctx, actType, act, entityType, entityID)
		if err != nil {
			e.logger.Warnf("automation: action %s on %s/%d failed: %v", actType, entityType, entityID, err)
			metrics.ActionsExecuted.WithLabelValues(actType, "failed").Inc()
			results = append(results, ActionResult{Action: actType, Success: false, Error: err.Error()})
			continue
		}
		metrics.ActionsExecuted.WithLabelValues(actType, "success").Inc()
		results = append(results, ActionResult{Action: actType, Success: true})
	}
	return results
}

func (e *AutomationEngine) runAction(ctx context.Context, actType string, act map[string]interface{}, entityType string, entityID uint) error {
	switch actType {
	case "approve_entity":
		if err := e.transitionEntity(ctx, entityType, entityID, true); err != nil {
			return err
		}
		e.audit(ctx, "approve_entity", entityType, entityID, act)
		return nil
	case "reject_entity":
		if err := e.transitionEntity(ctx, entityType, entityID, false); err != nil {
			return err
		}
		e.audit(ctx, "reject_entity", entityType, entityID, act)
		return nil
	case "suspend_user":
		userID := uintParam(act, "user_id")
		if userID == 0 && entityType == "user" {
			userID = entityID
		}
		if userID == 0 {
			return fmt.Errorf("user_id param required")
		}
		// 时长/原因不写入用户表，仅记入审计日志
		if err := e.store.UpdateUser(ctx, userID, map[string]interface{}{"status": "suspended"}); err != nil {
			return err
		}
		e.audit(ctx, "suspend_user", "user", userID, act)
		return nil
	case "send_notification":
		adminID := uintParam(act, "admin_id")
		if adminID == 0 {
			return fmt.Errorf("admin_id param required")
		}
		n := &models.AdminNotification{
			AdminID:        adminID,
			Type:           stringParamDefault(act, "notification_type", "automation"),
			Title:          stringParamDefault(act, "title", "Automation alert"),
			Message:        stringParam(act, "message"),
			Priority:       stringParamDefault(act, "priority", "normal"),
			ActionRequired: boolParam(act, "action_required"),
			CreatedAt:      time.Now(),
		}
		if err := e.store.CreateAdminNotification(ctx, n); err != nil {
			return err
		}
		if e.notifier != nil {
			e.notifier.Notify(n)
		}
		return nil
	case "create_workflow":
		workflowType := stringParamDefault(act, "workflow_type", "review")
		w := &models.AdminWorkflow{
			Name:         fmt.Sprintf("%s_%s_%d", workflowType, entityType, entityID),
			WorkflowType: workflowType,
			EntityType:   entityType,
			EntityID:     entityID,
			CurrentStep:  0,
			Status:       "pending",
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		return e.store.CreateAdminWorkflow(ctx, w)
	case "update_setting":
		key := stringParam(act, "setting_key")
		if key == "" {
			return fmt.Errorf("setting_key param required")
		}
		value, err := json.Marshal(act["setting_value"])
		if err != nil {
			return fmt.Errorf("invalid setting_value: %w", err)
		}
		setting := &models.AdminSetting{
			SettingValue: string(value),
			Category:     "automation",
			UpdatedAt:    time.Now(),
		}
		return e.store.UpsertAdminSetting(ctx, key, setting)
	case "log_metric":
		name := stringParam(act, "metric_name")
		if name == "" {
			return fmt.Errorf("metric_name param required")
		}
		dayStart := startOfDay(time.Now())
		value, ok := toFloat64(act["value"])
		if !ok {
			value = 1
		}
		m := &models.SystemMetric{
			MetricType:  stringParamDefault(act, "metric_type", "automation"),
			MetricName:  name,
			Value:       value,
			Unit:        stringParamDefault(act, "unit", "count"),
			Period:      "daily",
			PeriodStart: dayStart,
			PeriodEnd:   dayStart.Add(24 * time.Hour),
			CreatedAt:   time.Now(),
		}
		return e.store.CreateSystemMetric(ctx, m)
	default:
		return fmt.Errorf("unknown action type")
	}
}

// transitionEntity moves an entity to its approved or rejected state.
func (e *AutomationEngine) transitionEntity(ctx context.Context, entityType string, entityID uint, approve bool) error {
	switch entityType {
	case "tontine":
		status := "active"
		if !approve {
			status = "rejected"
		}
		return e.store.UpdateTontine(ctx, entityID, map[string]interface{}{"status": status})
	case "price":
		status := "verified"
		if !approve {
			status = "unverified"
		}
		return e.store.UpdateMarketPrice(ctx, entityID, map[string]interface{}{
			"is_verified": approve,
			"status":      status,
		})
	case "post":
		status := "approved"
		if !approve {
			status = "rejected"
		}
		return e.store.UpdateCommunityPost(ctx, entityID, map[string]interface{}{"status": status})
	default:
		return fmt.Errorf("unsupported entity type: %s", entityType)
	}
}

// audit writes the automated-action trail; failures are logged, never fatal.
func (e *AutomationEngine) audit(ctx context.Context, action, entityType string, entityID uint, params map[string]interface{}) {
	details, _ := json.Marshal(params)
	log := &models.AdminAuditLog{
		AdminID:         nil,
		Action:          action,
		EntityType:      entityType,
		EntityID:        entityID,
		Details:         string(details),
		AutomationLevel: "automated",
		DecisionReason:  stringParam(params, "reason"),
		CreatedAt:       time.Now(),
	}
	if err := e.store.CreateAdminAuditLog(ctx, log); err != nil {
		e.logger.Warnf("automation: audit log failed: %v", err)
	}
}

func stringParam(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringParamDefault(m map[string]interface{}, key, fallback string) string {
	if s := stringParam(m, key); s != "" {
		return s
	}
	return fallback
}

func boolParam(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func uintParam(m map[string]interface{}, key string) uint {
	if f, ok := toFloat64(m[key]); ok && f > 0 {
		return uint(f)
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
