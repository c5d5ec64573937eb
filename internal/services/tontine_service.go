package services

import (
	"context"
	"fmt"
	"time"

	"agrolink/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TontineService 互助会业务逻辑
type TontineService struct {
	db     *gorm.DB
	logger *logrus.Logger
	engine *AutomationEngine
}

func NewTontineService(db *gorm.DB, logger *logrus.Logger, engine *AutomationEngine) *TontineService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TontineService{db: db, logger: logger, engine: engine}
}

// TontineRequest 创建互助会的请求
type TontineRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	Region             string  `json:"region" binding:"required"`
	ContributionAmount float64 `json:"contribution_amount" binding:"required,gt=0"`
	Frequency          string  `json:"frequency"`
	MaxMembers         int     `json:"max_members"`
}

// Create stores a pending tontine and runs the approval automation.
func (s *TontineService) Create(ctx context.Context, creatorID uint, req *TontineRequest) (*models.Tontine, []models.AutomationExecution, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request required")
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = "monthly"
	}
	maxMembers := req.MaxMembers
	if maxMembers <= 0 {
		maxMembers = 12
	}
	tontine := &models.Tontine{
		Name:               req.Name,
		Description:        req.Description,
		Region:             req.Region,
		CreatorID:          creatorID,
		ContributionAmount: req.ContributionAmount,
		Frequency:          frequency,
		MaxMembers:         maxMembers,
		MemberCount:        1,
		Status:             "pending",
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(tontine).Error; err != nil {
		return nil, nil, err
	}

	var execs []models.AutomationExecution
	if s.engine != nil {
		execs = s.engine.ProcessTontineApproval(ctx, tontine)
		// 自动化可能已经改了状态，重新读取
		s.db.WithContext(ctx).First(tontine, tontine.ID)
	}
	return tontine, execs, nil
}

func (s *TontineService) Get(ctx context.Context, id uint) (*models.Tontine, error) {
	var tontine models.Tontine
	if err := s.db.WithContext(ctx).Preload("Contributions").First(&tontine, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("tontine not found")
		}
		return nil, err
	}
	return &tontine, nil
}

// List 按地区筛选、分页
func (s *TontineService) List(ctx context.Context, region string, page, pageSize int) ([]models.Tontine, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	q := s.db.WithContext(ctx).Model(&models.Tontine{})
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tontines []models.Tontine
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tontines).Error; err != nil {
		return nil, 0, err
	}
	return tontines, total, nil
}

// Join adds a member if the tontine is active and not full.
func (s *TontineService) Join(ctx context.Context, tontineID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tontine models.Tontine
		if err := tx.First(&tontine, tontineID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("tontine not found")
			}
			return err
		}
		if tontine.Status != "active" {
			return fmt.Errorf("tontine is not active")
		}
		if tontine.MemberCount >= tontine.MaxMembers {
			return fmt.Errorf("tontine is full")
		}
		return tx.Model(&models.Tontine{}).
			Where("id = ?", tontineID).
			Update("member_count", gorm.Expr("member_count + 1")).Error
	})
}

// Contribute records a payment and bumps the running total.
func (s *TontineService) Contribute(ctx context.Context, tontineID, userID uint, amount float64) (*models.TontineContribution, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	contribution := &models.TontineContribution{
		TontineID: tontineID,
		UserID:    userID,
		Amount:    amount,
		Period:    time.Now().Format("2006-01"),
		CreatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tontine models.Tontine
		if err := tx.First(&tontine, tontineID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("tontine not found")
			}
			return err
		}
		if tontine.Status != "active" {
			return fmt.Errorf("tontine is not active")
		}
		if err := tx.Create(contribution).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tontine{}).
			Where("id = ?", tontineID).
			Update("total_contributions", gorm.Expr("total_contributions + ?", amount)).Error
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}
