package handlers

import (
	"net/http"
	"strconv"

	"agrolink/internal/models"
	"agrolink/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler 后台仪表板、通知与审计
type AdminHandler struct {
	engine *services.AutomationEngine
	hub    *services.NotificationHub
	db     *gorm.DB
}

func NewAdminHandler(engine *services.AutomationEngine, hub *services.NotificationHub, db *gorm.DB) *AdminHandler {
	return &AdminHandler{engine: engine, hub: hub, db: db}
}

// Stats 引擎状态快照
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.engine.GetAutomationStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load stats", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Overview 仪表板聚合；部分数据无法读取时整体报错
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.engine.GetSystemOverview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load overview", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GenerateMetrics 手动触发日指标生成（也可由定时任务调用）
func (h *AdminHandler) GenerateMetrics(c *gin.Context) {
	written := h.engine.GenerateSystemMetrics(c.Request.Context())
	c.JSON(http.StatusOK, SuccessResponse{Message: "metrics generated", Data: gin.H{"written": written}})
}

// ListNotifications 当前管理员的通知
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	adminID, _ := c.Get("user_id")
	var notifications []models.AdminNotification
	q := h.db.WithContext(c.Request.Context()).Order("id DESC").Limit(100)
	if id, ok := adminID.(uint); ok {
		q = q.Where("admin_id = ? OR admin_id = 0", id)
	}
	if err := q.Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list notifications", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead 只允许修改 is_read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	result := h.db.WithContext(c.Request.Context()).
		Model(&models.AdminNotification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to mark read", Message: result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found", Message: "notification not found"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "marked read"})
}

// NotificationsWS 管理端实时通知
func (h *AdminHandler) NotificationsWS(c *gin.Context) {
	h.hub.HandleWebSocket(c)
}

// AuditLogs 审计日志查询
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	var logs []models.AdminAuditLog
	q := h.db.WithContext(c.Request.Context()).Order("id DESC").Limit(200)
	if entityType := c.Query("entity_type"); entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if level := c.Query("automation_level"); level != "" {
		q = q.Where("automation_level = ?", level)
	}
	if err := q.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list audit logs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// RegisterAdminRoutes 注册后台路由
func RegisterAdminRoutes(r *gin.RouterGroup, handler *AdminHandler) {
	r.GET("/stats", handler.Stats)
	r.GET("/overview", handler.Overview)
	r.POST("/metrics/generate", handler.GenerateMetrics)
	r.GET("/notifications", handler.ListNotifications)
	r.PUT("/notifications/:id/read", handler.MarkNotificationRead)
	r.GET("/notifications/ws", handler.NotificationsWS)
	r.GET("/audit-logs", handler.AuditLogs)
}
