package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusCancelled = "cancelled"
)

// ValidSaleStatus reports whether status is an accepted sale status.
func ValidSaleStatus(status string) bool {
	switch status {
	case SaleStatusCompleted, SaleStatusPending, SaleStatusCancelled:
		return true
	}
	return false
}

// Sale is the header of a point-of-sale transaction. TotalAmount is derived from its items
// at creation time and never recomputed.
type Sale struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerID  *uuid.UUID      `gorm:"type:char(36);index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	Status      string          `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	Items       []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SaleItem is a line of a sale. Price is the product price captured when the sale was made.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
