package handlers

import (
	"net/http"

	"agrolink/internal/services"

	"github.com/gin-gonic/gin"
)

// PriceHandler 市场价格接口
type PriceHandler struct {
	service *services.PriceService
}

func NewPriceHandler(service *services.PriceService) *PriceHandler {
	return &PriceHandler{service: service}
}

// Submit 上报价格（未核实状态，自动化可能当场核实）
func (h *PriceHandler) Submit(c *gin.Context) {
	var req services.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	price, _, err := h.service.Submit(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to submit price", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, price)
}

// List 价格列表
func (h *PriceHandler) List(c *gin.Context) {
	prices, err := h.service.List(c.Request.Context(),
		c.Query("crop"), c.Query("market"), c.Query("region"), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list prices", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, prices)
}

// Board 行情板：每种作物的最新核实价格
func (h *PriceHandler) Board(c *gin.Context) {
	board, err := h.service.Board(c.Request.Context(), c.Query("region"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load board", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, board)
}

// RegisterPriceRoutes 注册路由
func RegisterPriceRoutes(r *gin.RouterGroup, handler *PriceHandler) {
	prices := r.Group("/prices")
	{
		prices.GET("", handler.List)
		prices.POST("", handler.Submit)
		prices.GET("/board", handler.Board)
	}
}
