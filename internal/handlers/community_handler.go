package handlers

import (
	"net/http"

	"agrolink/internal/services"

	"github.com/gin-gonic/gin"
)

// CommunityHandler 社区帖子接口
type CommunityHandler struct {
	service *services.CommunityService
}

func NewCommunityHandler(service *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{service: service}
}

// CreatePost 发帖（待审核，自动化可能当场放行或拒绝）
func (h *CommunityHandler) CreatePost(c *gin.Context) {
	var req services.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	post, _, err := h.service.CreatePost(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create post", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts 已审核帖子列表
func (h *CommunityHandler) ListPosts(c *gin.Context) {
	posts, err := h.service.ListPosts(c.Request.Context(), c.Query("region"), queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list posts", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, posts)
}

// ReportPost 举报帖子
func (h *CommunityHandler) ReportPost(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return
	}
	if _, err := h.service.ReportPost(c.Request.Context(), id, currentUserID(c)); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "post not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to report post", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "reported"})
}

// RegisterCommunityRoutes 注册路由
func RegisterCommunityRoutes(r *gin.RouterGroup, handler *CommunityHandler) {
	posts := r.Group("/posts")
	{
		posts.GET("", handler.ListPosts)
		posts.POST("", handler.CreatePost)
		posts.POST(":id/report", handler.ReportPost)
	}
}
