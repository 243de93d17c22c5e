package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered customer or back-office admin
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Phone        string         `gorm:"type:varchar(20)" json:"phone"`
	Role         string         `gorm:"type:varchar(20);default:'customer'" json:"role"` // customer, admin
	TokenVersion int            `gorm:"default:0" json:"-"`                              // Increment to invalidate all user tokens

	// Relationships
	Orders         []RentalOrder       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// RoleAdmin and RoleCustomer are the only accepted user roles.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// IsAdmin reports whether the user may access back-office endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
