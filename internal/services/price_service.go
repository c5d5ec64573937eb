package services

import (
	"context"
	"fmt"
	"time"

	"agrolink/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PriceService 市场价格上报与行情板
type PriceService struct {
	db     *gorm.DB
	logger *logrus.Logger
	engine *AutomationEngine
}

func NewPriceService(db *gorm.DB, logger *logrus.Logger, engine *AutomationEngine) *PriceService {
	if logger == nil {
		logger = logrus.New()
	}
	return &PriceService{db: db, logger: logger, engine: engine}
}

// PriceRequest 价格上报请求
type PriceRequest struct {
	Crop   string  `json:"crop" binding:"required"`
	Market string  `json:"market" binding:"required"`
	Region string  `json:"region" binding:"required"`
	Value  float64 `json:"value" binding:"required,gt=0"`
	Unit   string  `json:"unit"`
}

// Submit stores an unverified price and runs the validation automation.
func (s *PriceService) Submit(ctx context.Context, userID uint, req *PriceRequest) (*models.MarketPrice, []models.AutomationExecution, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request required")
	}
	unit := req.Unit
	if unit == "" {
		unit = "kg"
	}
	price := &models.MarketPrice{
		Crop:        req.Crop,
		Market:      req.Market,
		Region:      req.Region,
		Value:       req.Value,
		Unit:        unit,
		SubmittedBy: userID,
		IsVerified:  false,
		Status:      "pending",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(price).Error; err != nil {
		return nil, nil, err
	}

	var execs []models.AutomationExecution
	if s.engine != nil {
		execs = s.engine.ProcessPriceValidation(ctx, price)
		s.db.WithContext(ctx).First(price, price.ID)
	}
	return price, execs, nil
}

// List 按作物/市场/地区筛选
func (s *PriceService) List(ctx context.Context, crop, market, region string, limit int) ([]models.MarketPrice, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&models.MarketPrice{})
	if crop != "" {
		q = q.Where("crop = ?", crop)
	}
	if market != "" {
		q = q.Where("market = ?", market)
	}
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var prices []models.MarketPrice
	if err := q.Order("id DESC").Limit(limit).Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// BoardEntry 行情板条目：某地区单一作物的最新核实价格
type BoardEntry struct {
	Crop      string    `json:"crop"`
	Market    string    `json:"market"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board returns the latest verified price per crop for a region.
func (s *PriceService) Board(ctx context.Context, region string) ([]BoardEntry, error) {
	var prices []models.MarketPrice
	q := s.db.WithContext(ctx).Where("is_verified = ?", true)
	if region != "" {
		q = q.Where("region = ?", region)
	}
	if err := q.Order("id DESC").Find(&prices).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	board := []BoardEntry{}
	for _, price := range prices {
		if seen[price.Crop] {
			continue
		}
		seen[price.Crop] = true
		board = append(board, BoardEntry{
			Crop:      price.Crop,
			Market:    price.Market,
			Value:     price.Value,
			Unit:      price.Unit,
			UpdatedAt: price.UpdatedAt,
		})
	}
	return board, nil
}
