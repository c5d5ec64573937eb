package services

import (
	"context"
	"fmt"
	"time"

	"agrolink/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CommunityService 社区帖子与举报
type CommunityService struct {
	db     *gorm.DB
	logger *logrus.Logger
	engine *AutomationEngine
}

func NewCommunityService(db *gorm.DB, logger *logrus.Logger, engine *AutomationEngine) *CommunityService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CommunityService{db: db, logger: logger, engine: engine}
}

// PostRequest 发帖请求
type PostRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category"`
	Region   string `json:"region"`
}

// CreatePost stores a pending post and runs the content-filter automation.
func (s *CommunityService) CreatePost(ctx context.Context, authorID uint, req *PostRequest) (*models.CommunityPost, []models.AutomationExecution, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request required")
	}
	category := req.Category
	if category == "" {
		category = "question"
	}
	post := &models.CommunityPost{
		AuthorID:  authorID,
		Title:     req.Title,
		Content:   req.Content,
		Category:  category,
		Region:    req.Region,
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, nil, err
	}

	var execs []models.AutomationExecution
	if s.engine != nil {
		execs = s.engine.ProcessContentFilter(ctx, post)
		s.db.WithContext(ctx).First(post, post.ID)
	}
	return post, execs, nil
}

// ListPosts 只返回已通过审核的帖子
func (s *CommunityService) ListPosts(ctx context.Context, region string, limit int) ([]models.CommunityPost, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Where("status = ?", "approved")
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var posts []models.CommunityPost
	if err := q.Order("id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ReportPost bumps the post and author report counters, then runs the
// user-moderation automation against the author with the fresh counts.
func (s *CommunityService) ReportPost(ctx context.Context, postID, reporterID uint) ([]models.AutomationExecution, error) {
	var post models.CommunityPost
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("post not found")
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CommunityPost{}).
			Where("id = ?", postID).
			Update("report_count", gorm.Expr("report_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", post.AuthorID).
			Update("report_count", gorm.Expr("report_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	if s.engine == nil {
		return nil, nil
	}
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, post.AuthorID).Error; err != nil {
		s.logger.Warnf("community: load reported author %d failed: %v", post.AuthorID, err)
		return nil, nil
	}
	execs := s.engine.ProcessUserModeration(ctx, &author, map[string]interface{}{
		"event":             "post_reported",
		"post_id":           float64(postID),
		"reporter_id":       float64(reporterID),
		"post_report_count": float64(post.ReportCount + 1),
	})
	return execs, nil
}
