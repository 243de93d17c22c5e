package database

import (
	"context"
	"errors"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RentalStore is the GORM-backed implementation of the checkout and payment
// store interfaces. Every multi-row mutation runs in a single transaction.
type RentalStore struct {
	db *gorm.DB
}

// NewRentalStore creates a new rental store
func NewRentalStore(db *gorm.DB) *RentalStore {
	return &RentalStore{db: db}
}

// GetFurniture loads one catalog item.
func (s *RentalStore) GetFurniture(ctx context.Context, id uint) (*model.FurnitureItem, error) {
	var furniture model.FurnitureItem
	if err := s.db.WithContext(ctx).First(&furniture, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrFurnitureNotFound
		}
		return nil, err
	}
	return &furniture, nil
}

// CreateOrder inserts the order with all its lines and decrements the stock
// of every referenced item, atomically. The decrement is conditional
// (available_quantity >= quantity); a zero rows-affected result on any line
// rolls the whole order back, so concurrent checkouts cannot oversell.
func (s *RentalStore) CreateOrder(ctx context.Context, order *model.RentalOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range order.Lines {
			res := tx.Model(&model.FurnitureItem{}).
				Where("id = ? AND available_quantity >= ?", line.FurnitureID, line.Quantity).
				UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return services.ErrInsufficientStock
			}
		}
		// Lines are created through the association in the same transaction.
		return tx.Create(order).Error
	})
}

// CreatePayment inserts a pending payment record for an order.
func (s *RentalStore) CreatePayment(ctx context.Context, payment *model.PaymentRecord) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

// SetPaymentPidx stores the provider transaction token issued at initiate.
func (s *RentalStore) SetPaymentPidx(ctx context.Context, paymentID uint, pidx string) error {
	return s.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("id = ?", paymentID).
		Update("pidx", pidx).Error
}

// FailPayment moves a PENDING payment to FAILED. SUCCESS records are never
// touched.
func (s *RentalStore) FailPayment(ctx context.Context, paymentID uint, meta []byte) error {
	updates := map[string]any{"status": model.PaymentFailed}
	if len(meta) > 0 {
		updates["gateway_meta"] = datatypes.JSON(meta)
	}
	return s.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(updates).Error
}

// GetOrder loads an order with its lines and payment.
func (s *RentalStore) GetOrder(ctx context.Context, id uint) (*model.RentalOrder, error) {
	var order model.RentalOrder
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payment").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a PENDING order, restores the stock its lines had
// committed and fails any pending payment attached to it. The order row is
// locked for the duration so cancellation cannot race verification.
func (s *RentalStore) CancelOrder(ctx context.Context, orderID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.RentalOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.ErrOrderNotFound
			}
			return err
		}
		if order.Status != model.RentalPending {
			return services.ErrOrderNotCancellable
		}

		var lines []model.RentalLine
		if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
			return err
		}
		for _, line := range lines {
			res := tx.Model(&model.FurnitureItem{}).
				Where("id = ?", line.FurnitureID).
				UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
		}

		if err := tx.Model(&model.RentalLine{}).
			Where("order_id = ?", orderID).
			Update("status", model.RentalCancelled).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.PaymentRecord{}).
			Where("order_id = ? AND status = ?", orderID, model.PaymentPending).
			Update("status", model.PaymentFailed).Error; err != nil {
			return err
		}
		return tx.Model(&model.RentalOrder{}).
			Where("id = ?", orderID).
			Update("status", model.RentalCancelled).Error
	})
}

// GetPayment loads one payment record with its order.
func (s *RentalStore) GetPayment(ctx context.Context, id uint) (*model.PaymentRecord, error) {
	var payment model.PaymentRecord
	if err := s.db.WithContext(ctx).Preload("Order").First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// MarkPaymentSucceeded applies the verified transition atomically: payment
// PENDING -> SUCCESS with transaction id, paid-at and the raw provider
// payload, every line of the order to paymentStatus SUCCESS and ACTIVE, and
// the order itself to ACTIVE. The status guard on the payment update makes a
// concurrent duplicate a no-op.
func (s *RentalStore) MarkPaymentSucceeded(ctx context.Context, paymentID uint, transactionID string, paidAt time.Time, meta []byte) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.PaymentRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, paymentID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.ErrPaymentNotFound
			}
			return err
		}
		if payment.Status == model.PaymentSuccess {
			return nil
		}
		if payment.Status != model.PaymentPending {
			return services.ErrPaymentAlreadyFinal
		}

		updates := map[string]any{
			"status":         model.PaymentSuccess,
			"transaction_id": transactionID,
			"paid_at":        paidAt,
		}
		if len(meta) > 0 {
			updates["gateway_meta"] = datatypes.JSON(meta)
		}
		if err := tx.Model(&model.PaymentRecord{}).
			Where("id = ?", paymentID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.RentalLine{}).
			Where("order_id = ? AND status = ?", payment.OrderID, model.RentalPending).
			Updates(map[string]any{
				"status":         model.RentalActive,
				"payment_status": model.PaymentSuccess,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.RentalOrder{}).
			Where("id = ?", payment.OrderID).
			Update("status", model.RentalActive).Error
	})
}
