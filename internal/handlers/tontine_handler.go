package handlers

import (
	"net/http"
	"strconv"

	"agrolink/internal/services"

	"github.com/gin-gonic/gin"
)

// TontineHandler 互助会接口
type TontineHandler struct {
	service *services.TontineService
}

func NewTontineHandler(service *services.TontineService) *TontineHandler {
	return &TontineHandler{service: service}
}

// Create 创建互助会（进入待审批状态，自动化可能当场放行）
func (h *TontineHandler) Create(c *gin.Context) {
	var req services.TontineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	userID := currentUserID(c)
	tontine, _, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create tontine", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tontine)
}

func (h *TontineHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	tontine, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "tontine not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to get tontine", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, tontine)
}

// List 分页列表
func (h *TontineHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	tontines, total, err := h.service.List(c.Request.Context(), c.Query("region"), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list tontines", Message: err.Error()})
		return
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     tontines,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	})
}

// Join 加入互助会
func (h *TontineHandler) Join(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	if err := h.service.Join(c.Request.Context(), id, currentUserID(c)); err != nil {
		status := http.StatusBadRequest
		if err.Error() == "tontine not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to join tontine", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "joined"})
}

// Contribute 缴款
func (h *TontineHandler) Contribute(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	contribution, err := h.service.Contribute(c.Request.Context(), id, currentUserID(c), req.Amount)
	if err != nil {
		status := http.StatusBadRequest
		if err.Error() == "tontine not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to contribute", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if s := c.Query(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// RegisterTontineRoutes 注册路由
func RegisterTontineRoutes(r *gin.RouterGroup, handler *TontineHandler) {
	tontines := r.Group("/tontines")
	{
		tontines.GET("", handler.List)
		tontines.POST("", handler.Create)
		tontines.GET(":id", handler.Get)
		tontines.POST(":id/join", handler.Join)
		tontines.POST(":id/contributions", handler.Contribute)
	}
}
