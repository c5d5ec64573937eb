package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户模型（农户/商贩/管理员）
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"unique;not null" json:"username"`
	Email       string         `gorm:"unique;not null" json:"email"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Region      string         `gorm:"index" json:"region"`
	Role        string         `gorm:"default:'farmer'" json:"role"`   // farmer, trader, admin
	Status      string         `gorm:"default:'active'" json:"status"` // active, suspended, banned
	Premium     bool           `gorm:"default:false" json:"premium"`
	ReportCount int            `gorm:"default:0" json:"report_count"`
	LastLogin   *time.Time     `json:"last_login"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// 关联关系
	Tontines []Tontine       `gorm:"foreignKey:CreatorID" json:"tontines,omitempty"`
	Posts    []CommunityPost `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// 互助会（轮转储蓄小组）
type Tontine struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	Description        string         `gorm:"type:text" json:"description"`
	Region             string         `gorm:"index" json:"region"`
	CreatorID          uint           `gorm:"index" json:"creator_id"`
	ContributionAmount float64        `json:"contribution_amount"`
	Frequency          string         `gorm:"default:'monthly'" json:"frequency"` // weekly, monthly
	MaxMembers         int            `gorm:"default:12" json:"max_members"`
	MemberCount        int            `gorm:"default:1" json:"member_count"`
	TotalContributions float64        `gorm:"default:0" json:"total_contributions"`
	Status             string         `gorm:"default:'pending'" json:"status"` // pending, active, rejected, closed
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Creator       User                  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Contributions []TontineContribution `gorm:"foreignKey:TontineID" json:"contributions,omitempty"`
}

// 互助会缴款记录
type TontineContribution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TontineID uint      `gorm:"index" json:"tontine_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Amount    float64   `json:"amount"`
	Period    string    `json:"period"` // e.g. 2026-09
	CreatedAt time.Time `json:"created_at"`

	Tontine Tontine `gorm:"foreignKey:TontineID" json:"tontine,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// 市场价格上报
type MarketPrice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Crop        string    `gorm:"index;not null" json:"crop"`
	Market      string    `gorm:"index" json:"market"`
	Region      string    `gorm:"index" json:"region"`
	Value       float64   `gorm:"not null" json:"value"`
	Unit        string    `gorm:"default:'kg'" json:"unit"`
	SubmittedBy uint      `gorm:"index" json:"submitted_by"`
	IsVerified  bool      `gorm:"default:false" json:"is_verified"`
	Status      string    `gorm:"default:'pending'" json:"status"` // pending, verified, unverified
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Submitter User `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
}

// 社区帖子
type CommunityPost struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AuthorID    uint           `gorm:"index" json:"author_id"`
	Title       string         `gorm:"not null" json:"title"`
	Content     string         `gorm:"type:text" json:"content"`
	Category    string         `json:"category"` // question, advice, market, alert
	Region      string         `gorm:"index" json:"region"`
	Status      string         `gorm:"default:'pending'" json:"status"` // pending, approved, rejected
	ReportCount int            `gorm:"default:0" json:"report_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
