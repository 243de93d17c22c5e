package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/utils/auth"
)

// paymentExpiry is how long a gateway payment may stay PENDING before the
// order is given up and its stock released.
const paymentExpiry = 24 * time.Hour

// ExpireStalePayments fails Khalti payments that never completed and cancels
// their orders, restoring inventory. CancelOrder skips orders that are no
// longer PENDING, so a verification landing concurrently wins.
func (m *CronManager) ExpireStalePayments() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-paymentExpiry)

	var stale []model.PaymentRecord
	err := m.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.PaymentPending, cutoff).
		Find(&stale).Error
	if err != nil {
		return "", fmt.Errorf("failed to query stale payments: %w", err)
	}

	if len(stale) == 0 {
		return "no stale payments", nil
	}

	cancelled := 0
	for _, payment := range stale {
		if err := m.store.CancelOrder(ctx, payment.OrderID); err != nil {
			log.Printf("[CRON] could not cancel order %d for stale payment %d: %v", payment.OrderID, payment.ID, err)
			continue
		}
		cancelled++
	}

	return fmt.Sprintf("expired %d of %d stale payments", cancelled, len(stale)), nil
}

// CompleteFinishedRentals moves ACTIVE lines whose rental period has ended to
// COMPLETED, then completes orders with no remaining active lines.
func (m *CronManager) CompleteFinishedRentals() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()

	res := m.db.WithContext(ctx).
		Model(&model.RentalLine{}).
		Where("status = ? AND end_date < ?", model.RentalActive, now).
		Update("status", model.RentalCompleted)
	if res.Error != nil {
		return "", fmt.Errorf("failed to complete rental lines: %w", res.Error)
	}

	// Orders are done once none of their lines is still active.
	err := m.db.WithContext(ctx).
		Model(&model.RentalOrder{}).
		Where("status = ?", model.RentalActive).
		Where("NOT EXISTS (SELECT 1 FROM rental_lines WHERE rental_lines.order_id = rental_orders.id AND rental_lines.status = ?)",
			model.RentalActive).
		Update("status", model.RentalCompleted).Error
	if err != nil {
		return "", fmt.Errorf("failed to complete rental orders: %w", err)
	}

	return fmt.Sprintf("completed %d rental lines", res.RowsAffected), nil
}

// CleanupTokenBlacklist purges blacklist rows for tokens that expired anyway.
func (m *CronManager) CleanupTokenBlacklist() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := auth.NewBlacklistService(m.db).CleanupExpired(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d expired blacklist entries", removed), nil
}
