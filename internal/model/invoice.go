package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// ValidInvoiceStatus reports whether status is an accepted invoice status.
func ValidInvoiceStatus(status string) bool {
	switch status {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a billing document issued against a sale. Its status is independent of the sale's.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	SaleID         uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	Sale           *Sale           `gorm:"foreignKey:SaleID" json:"-"`
	CustomerID     *uuid.UUID      `gorm:"type:char(36);index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	UserID         uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod  *string         `gorm:"type:varchar(50)" json:"payment_method"`
	Notes          *string         `gorm:"type:text" json:"notes"`
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:char(36);not null;index" json:"invoice_id"`
	ProductID uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
