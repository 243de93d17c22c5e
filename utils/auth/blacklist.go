package auth

import (
	"context"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"gorm.io/gorm"
)

// BlacklistService tracks revoked token JTIs
type BlacklistService struct {
	db *gorm.DB
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{db: db}
}

// RevokeToken records a JTI as revoked until its natural expiry.
func (s *BlacklistService) RevokeToken(ctx context.Context, userID uint, jti string, expiresAt time.Time, reason string) error {
	entry := model.JWTTokenBlacklist{
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: expiresAt,
		Reason:    reason,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// IsTokenRevoked reports whether a JTI has been revoked.
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.JWTTokenBlacklist{}).
		Where("jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CleanupExpired removes blacklist entries whose tokens have expired anyway.
func (s *BlacklistService) CleanupExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&model.JWTTokenBlacklist{})
	return res.RowsAffected, res.Error
}
