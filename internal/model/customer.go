package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Email     *string   `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Phone     *string   `gorm:"type:varchar(20)" json:"phone"`
	Address   *string   `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
