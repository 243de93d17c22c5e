package model

import "time"

// JWTTokenBlacklist stores revoked token JTIs until their natural expiry
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	JTI       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Reason    string    `gorm:"type:varchar(50)" json:"reason"` // logout, password_change
}

// TableName specifies the table name for JWTTokenBlacklist
func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}
