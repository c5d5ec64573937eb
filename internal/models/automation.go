package models

import "time"

// AutomationRule 自动化规则定义
// Conditions 为 JSON 对象：点路径字段 -> 字面量或 {operator,value}；
// Actions 为 JSON 数组：[{type, ...params}]。
type AutomationRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RuleType    string    `gorm:"index;not null" json:"rule_type"` // tontine_approval, price_validation, user_moderation, content_filter
	RuleName    string    `gorm:"unique;not null" json:"rule_name"`
	Description string    `gorm:"type:text" json:"description"`
	Conditions  string    `gorm:"type:text" json:"conditions"`
	Actions     string    `gorm:"type:text" json:"actions"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	Priority    int       `gorm:"default:0" json:"priority"` // 越大越先执行
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AutomationExecution 单次规则执行的审计记录，只增不改
type AutomationExecution struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RuleID        uint      `gorm:"index" json:"rule_id"`
	EntityType    string    `json:"entity_type"` // tontine, price, user, post
	EntityID      uint      `json:"entity_id"`
	TriggerData   string    `gorm:"type:text" json:"trigger_data"` // JSON snapshot
	ActionsTaken  string    `gorm:"type:text" json:"actions_taken"`
	Success       bool      `gorm:"index" json:"success"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTime int64     `json:"execution_time"` // ms
	CreatedAt     time.Time `json:"created_at"`

	Rule AutomationRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}

// AdminAuditLog 管理操作审计，write-once
type AdminAuditLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AdminID         *uint     `gorm:"index" json:"admin_id"` // nil 表示自动化操作
	Action          string    `gorm:"index;not null" json:"action"`
	EntityType      string    `gorm:"index" json:"entity_type"`
	EntityID        uint      `json:"entity_id"`
	Details         string    `gorm:"type:text" json:"details"`
	AutomationLevel string    `gorm:"default:'manual'" json:"automation_level"` // manual, automated, override
	DecisionReason  string    `gorm:"type:text" json:"decision_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AdminNotification 管理员通知，只有 is_read 可变
type AdminNotification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AdminID        uint      `gorm:"index" json:"admin_id"`
	Type           string    `json:"type"`
	Title          string    `gorm:"not null" json:"title"`
	Message        string    `gorm:"type:text" json:"message"`
	Priority       string    `gorm:"default:'normal'" json:"priority"` // low, normal, high, urgent
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	ActionRequired bool      `gorm:"default:false" json:"action_required"`
	CreatedAt      time.Time `json:"created_at"`
}

// AdminWorkflow 多步处理流程记录
type AdminWorkflow struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	WorkflowType string    `gorm:"index" json:"workflow_type"`
	EntityType   string    `json:"entity_type"`
	EntityID     uint      `json:"entity_id"`
	CurrentStep  int       `gorm:"default:0" json:"current_step"`
	Status       string    `gorm:"default:'pending'" json:"status"` // pending, in_progress, done
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminSetting 动态配置项，按 key 覆盖写入
type AdminSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"unique;not null" json:"setting_key"`
	SettingValue string    `gorm:"type:text" json:"setting_value"`
	Category     string    `gorm:"default:'general'" json:"category"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SystemMetric 按时间段落盘的系统指标，write-once
type SystemMetric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MetricType  string    `gorm:"index" json:"metric_type"`
	MetricName  string    `gorm:"index" json:"metric_name"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	Period      string    `gorm:"default:'daily'" json:"period"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Metadata    string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
