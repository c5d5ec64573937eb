package handlers

import (
	"net/http"
	"strconv"
	"time"

	"agrolink/internal/services"
	"agrolink/internal/storage"

	"github.com/gin-gonic/gin"
)

// AutomationHandler 管理自动化规则与执行记录
type AutomationHandler struct {
	engine *services.AutomationEngine
	store  storage.Store
}

func NewAutomationHandler(engine *services.AutomationEngine, store storage.Store) *AutomationHandler {
	return &AutomationHandler{engine: engine, store: store}
}

// ListRules 获取规则列表，可按 rule_type / active 过滤
func (h *AutomationHandler) ListRules(c *gin.Context) {
	filter := storage.RuleFilter{RuleType: c.Query("rule_type")}
	if activeStr := c.Query("active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}
	rules, err := h.store.GetAutomationRules(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule 创建规则
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req services.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if adminID, ok := c.Get("user_id"); ok {
		if id, ok := adminID.(uint); ok {
			req.CreatedBy = id
		}
	}
	rule, err := h.engine.CreateRule(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule 更新规则
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	var req services.AutomationRuleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if err := h.engine.UpdateRule(c.Request.Context(), id, &req); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "rule not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// DeleteRule 删除规则
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	if err := h.engine.DeleteRule(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "rule not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListExecutions 执行记录查询
func (h *AutomationHandler) ListExecutions(c *gin.Context) {
	filter := storage.ExecutionFilter{EntityType: c.Query("entity_type")}
	if ruleIDStr := c.Query("rule_id"); ruleIDStr != "" {
		ruleID, err := strconv.ParseUint(ruleIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid rule_id", Message: err.Error()})
			return
		}
		filter.RuleID = uint(ruleID)
	}
	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid since", Message: err.Error()})
			return
		}
		filter.Since = &since
	}
	filter.Limit = 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	execs, err := h.store.GetAutomationExecutions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list executions", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, execs)
}

// Reload 手动重建规则缓存
func (h *AutomationHandler) Reload(c *gin.Context) {
	if err := h.engine.Initialize(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to reload rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "reloaded"})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

// RegisterAutomationRoutes 注册路由
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	rules := r.Group("/automation/rules")
	{
		rules.GET("", handler.ListRules)
		rules.POST("", handler.CreateRule)
		rules.PUT(":id", handler.UpdateRule)
		rules.DELETE(":id", handler.DeleteRule)
	}
	r.GET("/automation/executions", handler.ListExecutions)
	r.POST("/automation/reload", handler.Reload)
}
