package model

import (
	"time"

	"gorm.io/gorm"
)

// FurnitureCategory is the closed set of catalog tags
type FurnitureCategory string

const (
	CategorySofa     FurnitureCategory = "SOFA"
	CategoryBed      FurnitureCategory = "BED"
	CategoryTable    FurnitureCategory = "TABLE"
	CategoryChair    FurnitureCategory = "CHAIR"
	CategoryWardrobe FurnitureCategory = "WARDROBE"
	CategoryDecor    FurnitureCategory = "DECOR"
)

// Valid reports whether the category belongs to the closed enum set.
func (c FurnitureCategory) Valid() bool {
	switch c {
	case CategorySofa, CategoryBed, CategoryTable, CategoryChair, CategoryWardrobe, CategoryDecor:
		return true
	}
	return false
}

// FurnitureItem represents a rentable catalog item.
//
// AvailableQuantity never goes below zero: it is only mutated through the
// atomic conditional decrement in the rental store, or restored when a
// not-yet-active order is cancelled.
type FurnitureItem struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
	Title             string            `gorm:"not null" json:"title"`
	Description       string            `gorm:"type:text" json:"description"`
	Category          FurnitureCategory `gorm:"type:varchar(20);index;not null" json:"category"`
	DailyRate         float64           `gorm:"not null" json:"daily_rate"`
	WeeklyRate        float64           `gorm:"not null" json:"weekly_rate"`
	MonthlyRate       float64           `gorm:"not null" json:"monthly_rate"`
	AvailableQuantity int               `gorm:"not null;default:0;check:available_quantity >= 0" json:"available_quantity"`

	// Relationships
	Images []FurnitureImage `gorm:"foreignKey:FurnitureID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// TableName specifies the table name for FurnitureItem
func (FurnitureItem) TableName() string {
	return "furniture_items"
}

// RateFor returns the rate matching the rental period granularity.
func (f *FurnitureItem) RateFor(t RentalType) float64 {
	switch t {
	case RentalWeekly:
		return f.WeeklyRate
	case RentalMonthly:
		return f.MonthlyRate
	default:
		return f.DailyRate
	}
}

// FurnitureImage is an uploaded product photo stored in Spaces
type FurnitureImage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FurnitureID uint      `gorm:"not null;index" json:"furniture_id"`
	URL         string    `gorm:"not null" json:"url"`
	StorageKey  string    `gorm:"not null" json:"-"` // object key in Spaces, needed for delete
}

// TableName specifies the table name for FurnitureImage
func (FurnitureImage) TableName() string {
	return "furniture_images"
}
