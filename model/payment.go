package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentRecord is one gateway payment attempt for a rental order.
//
// Allowed transitions are PENDING -> SUCCESS and PENDING -> FAILED only.
// SUCCESS is terminal: re-verification returns the stored record untouched,
// so a reloaded redirect page or a duplicate gateway callback can never
// double-apply the rental activation.
type PaymentRecord struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	OrderID       uint           `gorm:"not null;uniqueIndex" json:"order_id"`
	PaymentMethod PaymentMethod  `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        PaymentStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Amount        float64        `gorm:"not null" json:"amount"`
	Pidx          string         `gorm:"type:varchar(100);index" json:"pidx,omitempty"`
	TransactionID *string        `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	GatewayMeta   datatypes.JSON `json:"gateway_meta,omitempty"` // raw provider payload, kept for audit

	// Relationships
	Order RentalOrder `gorm:"foreignKey:OrderID" json:"-"`
}

// TableName specifies the table name for PaymentRecord
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// AmountPaisa returns the amount in the gateway's minor unit.
func (p *PaymentRecord) AmountPaisa() int64 {
	return int64(p.Amount*100 + 0.5)
}
