package model

import (
	"time"

	"gorm.io/gorm"
)

// RentalType is the rental period granularity
type RentalType string

const (
	RentalDaily   RentalType = "DAILY"
	RentalWeekly  RentalType = "WEEKLY"
	RentalMonthly RentalType = "MONTHLY"
)

// Valid reports whether the rental type belongs to the closed enum set.
func (t RentalType) Valid() bool {
	switch t {
	case RentalDaily, RentalWeekly, RentalMonthly:
		return true
	}
	return false
}

// PaymentMethod selects cash-on-delivery or the Khalti gateway
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentKhalti PaymentMethod = "KHALTI"
)

// Valid reports whether the payment method belongs to the closed enum set.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentKhalti
}

// RentalStatus is the fulfillment state of an order or line
type RentalStatus string

const (
	RentalPending   RentalStatus = "PENDING"
	RentalActive    RentalStatus = "ACTIVE"
	RentalCompleted RentalStatus = "COMPLETED"
	RentalCancelled RentalStatus = "CANCELLED"
)

// Valid reports whether the rental status belongs to the closed enum set.
func (s RentalStatus) Valid() bool {
	switch s {
	case RentalPending, RentalActive, RentalCompleted, RentalCancelled:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a line or payment record
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether the payment status belongs to the closed enum set.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// DeliveryStatus tracks physical fulfillment of a rental line
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryDispatched DeliveryStatus = "DISPATCHED"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
)

// Valid reports whether the delivery status belongs to the closed enum set.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryDispatched, DeliveryDelivered:
		return true
	}
	return false
}

// RentalOrder is the checkout aggregate: it owns every rental line created
// by one checkout request and, for gateway-paid orders, exactly one
// PaymentRecord. A payment settles the whole order, never a single line.
type RentalOrder struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	TotalAmount   float64        `gorm:"not null" json:"total_amount"`
	PaymentMethod PaymentMethod  `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        RentalStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DiscountCode  string         `gorm:"type:varchar(50)" json:"discount_code,omitempty"`

	// Delivery address
	AddressLine string `gorm:"not null" json:"address_line"`
	City        string `gorm:"not null" json:"city"`
	PhoneNumber string `gorm:"type:varchar(20);not null" json:"phone_number"`

	// Relationships
	User    User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Lines   []RentalLine   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Payment *PaymentRecord `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// TableName specifies the table name for RentalOrder
func (RentalOrder) TableName() string {
	return "rental_orders"
}

// RentalLine is one furniture item within a checkout.
//
// TotalAmount is computed once at checkout and never recomputed afterwards.
// Status and PaymentStatus evolve independently but converge: a successful
// payment moves PENDING lines to ACTIVE.
type RentalLine struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	OrderID        uint           `gorm:"not null;index" json:"order_id"`
	FurnitureID    uint           `gorm:"not null;index" json:"furniture_id"`
	RentalType     RentalType     `gorm:"type:varchar(20);not null" json:"rental_type"`
	StartDate      time.Time      `gorm:"not null" json:"start_date"`
	EndDate        time.Time      `gorm:"not null" json:"end_date"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	TotalAmount    float64        `gorm:"not null" json:"total_amount"`
	Status         RentalStatus   `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PaymentStatus  PaymentStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"payment_status"`
	DeliveryStatus DeliveryStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"delivery_status"`

	// Relationships
	Furniture FurnitureItem `gorm:"foreignKey:FurnitureID" json:"furniture,omitempty"`
}

// TableName specifies the table name for RentalLine
func (RentalLine) TableName() string {
	return "rental_lines"
}
