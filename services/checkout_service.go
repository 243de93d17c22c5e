package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/khalti"
)

// CheckoutStore is the transactional persistence boundary of the checkout
// flow. CreateOrder must insert the order with all its lines and apply every
// inventory decrement inside a single database transaction: a shortfall on
// any line leaves nothing behind.
type CheckoutStore interface {
	GetFurniture(ctx context.Context, id uint) (*model.FurnitureItem, error)
	CreateOrder(ctx context.Context, order *model.RentalOrder) error
	CreatePayment(ctx context.Context, payment *model.PaymentRecord) error
	SetPaymentPidx(ctx context.Context, paymentID uint, pidx string) error
	FailPayment(ctx context.Context, paymentID uint, meta []byte) error
	GetOrder(ctx context.Context, id uint) (*model.RentalOrder, error)
	CancelOrder(ctx context.Context, orderID uint) error
}

// CheckoutItem is one validated cart line
type CheckoutItem struct {
	FurnitureID uint
	Quantity    int
	RentalType  model.RentalType
}

// CheckoutInput carries everything one checkout request needs
type CheckoutInput struct {
	UserID        uint
	Items         []CheckoutItem
	StartDate     time.Time
	EndDate       time.Time
	PaymentMethod model.PaymentMethod
	DiscountCode  string

	// Delivery address
	AddressLine string
	City        string
	PhoneNumber string

	// Payer identity forwarded to the gateway
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ReturnURL     string
}

// CheckoutResult is what the handler turns into the API response.
// Payment, PaymentURL and Pidx are only set for gateway checkouts.
type CheckoutResult struct {
	Order      *model.RentalOrder
	Payment    *model.PaymentRecord
	PaymentURL string
	Pidx       string
	ExpiresAt  string
}

// CheckoutService orchestrates order placement: validation, pricing, the
// atomic order+inventory write, and the optional gateway initiate.
type CheckoutService struct {
	store      CheckoutStore
	gateway    khalti.Client
	websiteURL string
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store CheckoutStore, gateway khalti.Client, websiteURL string) *CheckoutService {
	return &CheckoutService{
		store:      store,
		gateway:    gateway,
		websiteURL: websiteURL,
	}
}

// TotalDays computes the billed rental duration in whole days, rounding up.
func TotalDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// LineTotal prices one cart line. Daily rentals bill rate x days x quantity;
// weekly and monthly rates already represent the period cost, so they bill
// rate x quantity.
func LineTotal(rate float64, rentalType model.RentalType, days, quantity int) float64 {
	if rentalType == model.RentalDaily {
		return rate * float64(days) * float64(quantity)
	}
	return rate * float64(quantity)
}

// PlaceOrder runs the full checkout. For cash orders it returns after the
// atomic order write. For gateway orders it additionally creates a pending
// PaymentRecord and initiates the hosted payment; if the gateway rejects the
// initiate, the order is compensated (cancelled, stock restored) so a failed
// checkout never leaves partial state.
func (s *CheckoutService) PlaceOrder(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	days := TotalDays(in.StartDate, in.EndDate)
	if days <= 0 {
		return nil, ErrInvalidDates
	}

	var (
		lines     []model.RentalLine
		itemNames []string
		total     float64
	)
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if !item.RentalType.Valid() {
			return nil, ErrInvalidRentalType
		}

		furniture, err := s.store.GetFurniture(ctx, item.FurnitureID)
		if err != nil {
			return nil, err
		}
		// Pre-check only; the authoritative guard is the conditional
		// decrement inside CreateOrder's transaction.
		if furniture.AvailableQuantity < item.Quantity {
			return nil, ErrInsufficientStock
		}

		lineTotal := LineTotal(furniture.RateFor(item.RentalType), item.RentalType, days, item.Quantity)
		lines = append(lines, model.RentalLine{
			FurnitureID:    item.FurnitureID,
			RentalType:     item.RentalType,
			StartDate:      in.StartDate,
			EndDate:        in.EndDate,
			Quantity:       item.Quantity,
			TotalAmount:    lineTotal,
			Status:         model.RentalPending,
			PaymentStatus:  model.PaymentPending,
			DeliveryStatus: model.DeliveryPending,
		})
		itemNames = append(itemNames, furniture.Title)
		total += lineTotal
	}

	order := &model.RentalOrder{
		UserID:        in.UserID,
		TotalAmount:   total,
		PaymentMethod: in.PaymentMethod,
		Status:        model.RentalPending,
		DiscountCode:  in.DiscountCode,
		AddressLine:   in.AddressLine,
		City:          in.City,
		PhoneNumber:   in.PhoneNumber,
		Lines:         lines,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if in.PaymentMethod == model.PaymentCash {
		// Cash settles out-of-band; fulfillment picks the order up as PENDING.
		return &CheckoutResult{Order: order}, nil
	}

	payment := &model.PaymentRecord{
		OrderID:       order.ID,
		PaymentMethod: in.PaymentMethod,
		Status:        model.PaymentPending,
		Amount:        total,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	initiated, err := s.gateway.Initiate(ctx, khalti.InitiateRequest{
		Amount:            total,
		PurchaseOrderID:   fmt.Sprintf("ORDER-%d", order.ID),
		PurchaseOrderName: strings.Join(itemNames, ", "),
		ReturnURL:         in.ReturnURL,
		WebsiteURL:        s.websiteURL,
		Customer: khalti.CustomerInfo{
			Name:  in.CustomerName,
			Email: in.CustomerEmail,
			Phone: in.CustomerPhone,
		},
	})
	if err != nil {
		// Best-effort compensation: the order never reached the customer,
		// so release the stock it committed.
		_ = s.store.FailPayment(ctx, payment.ID, nil)
		_ = s.store.CancelOrder(ctx, order.ID)
		return nil, err
	}

	if err := s.store.SetPaymentPidx(ctx, payment.ID, initiated.Pidx); err != nil {
		return nil, err
	}
	payment.Pidx = initiated.Pidx

	return &CheckoutResult{
		Order:      order,
		Payment:    payment,
		PaymentURL: initiated.PaymentURL,
		Pidx:       initiated.Pidx,
		ExpiresAt:  initiated.ExpiresAt,
	}, nil
}

// CancelOrder cancels a customer's own PENDING order and restores the stock
// its lines had committed.
func (s *CheckoutService) CancelOrder(ctx context.Context, userID, orderID uint) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return ErrNotOrderOwner
	}
	if order.Status != model.RentalPending {
		return ErrOrderNotCancellable
	}
	return s.store.CancelOrder(ctx, orderID)
}
