package services

import (
	"context"
	"testing"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/khalti"
	"github.com/stretchr/testify/require"
)

type mockCheckoutStore struct {
	getFurnitureFn   func(ctx context.Context, id uint) (*model.FurnitureItem, error)
	createOrderFn    func(ctx context.Context, order *model.RentalOrder) error
	createPaymentFn  func(ctx context.Context, payment *model.PaymentRecord) error
	setPaymentPidxFn func(ctx context.Context, paymentID uint, pidx string) error
	failPaymentFn    func(ctx context.Context, paymentID uint, meta []byte) error
	getOrderFn       func(ctx context.Context, id uint) (*model.RentalOrder, error)
	cancelOrderFn    func(ctx context.Context, orderID uint) error

	createdOrders    []*model.RentalOrder
	failedPayments   []uint
	cancelledOrders  []uint
	createdPayments  []*model.PaymentRecord
	storedPidxValues map[uint]string
}

var _ CheckoutStore = (*mockCheckoutStore)(nil)

func (m *mockCheckoutStore) GetFurniture(ctx context.Context, id uint) (*model.FurnitureItem, error) {
	return m.getFurnitureFn(ctx, id)
}

func (m *mockCheckoutStore) CreateOrder(ctx context.Context, order *model.RentalOrder) error {
	if m.createOrderFn != nil {
		if err := m.createOrderFn(ctx, order); err != nil {
			return err
		}
	} else {
		order.ID = uint(len(m.createdOrders) + 1)
		for i := range order.Lines {
			order.Lines[i].ID = uint(i + 1)
			order.Lines[i].OrderID = order.ID
		}
	}
	m.createdOrders = append(m.createdOrders, order)
	return nil
}

func (m *mockCheckoutStore) CreatePayment(ctx context.Context, payment *model.PaymentRecord) error {
	if m.createPaymentFn != nil {
		return m.createPaymentFn(ctx, payment)
	}
	payment.ID = uint(len(m.createdPayments) + 1)
	m.createdPayments = append(m.createdPayments, payment)
	return nil
}

func (m *mockCheckoutStore) SetPaymentPidx(ctx context.Context, paymentID uint, pidx string) error {
	if m.setPaymentPidxFn != nil {
		return m.setPaymentPidxFn(ctx, paymentID, pidx)
	}
	if m.storedPidxValues == nil {
		m.storedPidxValues = map[uint]string{}
	}
	m.storedPidxValues[paymentID] = pidx
	return nil
}

func (m *mockCheckoutStore) FailPayment(ctx context.Context, paymentID uint, meta []byte) error {
	if m.failPaymentFn != nil {
		return m.failPaymentFn(ctx, paymentID, meta)
	}
	m.failedPayments = append(m.failedPayments, paymentID)
	return nil
}

func (m *mockCheckoutStore) GetOrder(ctx context.Context, id uint) (*model.RentalOrder, error) {
	return m.getOrderFn(ctx, id)
}

func (m *mockCheckoutStore) CancelOrder(ctx context.Context, orderID uint) error {
	if m.cancelOrderFn != nil {
		return m.cancelOrderFn(ctx, orderID)
	}
	m.cancelledOrders = append(m.cancelledOrders, orderID)
	return nil
}

type mockGateway struct {
	initiateFn func(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error)
	verifyFn   func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error)
}

var _ khalti.Client = (*mockGateway)(nil)

func (m *mockGateway) Initiate(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error) {
	return m.initiateFn(ctx, req)
}

func (m *mockGateway) Verify(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
	return m.verifyFn(ctx, req)
}

func catalogWith(items map[uint]*model.FurnitureItem) func(ctx context.Context, id uint) (*model.FurnitureItem, error) {
	return func(ctx context.Context, id uint) (*model.FurnitureItem, error) {
		item, ok := items[id]
		if !ok {
			return nil, ErrFurnitureNotFound
		}
		cp := *item
		return &cp, nil
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// --- pricing ---

func TestTotalDays(t *testing.T) {
	require.Equal(t, 2, TotalDays(day("2026-03-01"), day("2026-03-03")))
	require.Equal(t, 1, TotalDays(day("2026-03-01"), day("2026-03-02")))
	require.Equal(t, 0, TotalDays(day("2026-03-01"), day("2026-03-01")))
	require.LessOrEqual(t, TotalDays(day("2026-03-03"), day("2026-03-01")), 0)

	// Partial days round up.
	start := day("2026-03-01")
	require.Equal(t, 2, TotalDays(start, start.Add(25*time.Hour)))
}

func TestLineTotal(t *testing.T) {
	// Daily rentals multiply by the duration.
	require.Equal(t, 400.0, LineTotal(100, model.RentalDaily, 2, 2))
	// Weekly and monthly rates already price the whole period.
	require.Equal(t, 1000.0, LineTotal(500, model.RentalWeekly, 10, 2))
	require.Equal(t, 1500.0, LineTotal(1500, model.RentalMonthly, 31, 1))
}

// --- checkout ---

func TestPlaceOrder_CashDaily(t *testing.T) {
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, Title: "Oak Desk", DailyRate: 100, AvailableQuantity: 5},
		}),
	}
	svc := NewCheckoutService(store, &mockGateway{}, "https://furnirent.example")

	result, err := svc.PlaceOrder(ctx, CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 2, RentalType: model.RentalDaily}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-03"),
		PaymentMethod: model.PaymentCash,
		AddressLine:   "12 Lazimpat",
		City:          "Kathmandu",
		PhoneNumber:   "9800000001",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.Nil(t, result.Payment)
	require.Empty(t, result.PaymentURL)

	// 100/day x 2 days x 2 units
	require.Equal(t, 400.0, result.Order.TotalAmount)
	require.Equal(t, model.RentalPending, result.Order.Status)
	require.Len(t, result.Order.Lines, 1)
	require.Equal(t, 400.0, result.Order.Lines[0].TotalAmount)
	require.Equal(t, model.DeliveryPending, result.Order.Lines[0].DeliveryStatus)
	require.Len(t, store.createdOrders, 1)
	require.Empty(t, store.createdPayments)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, Title: "Oak Desk", DailyRate: 100, AvailableQuantity: 1},
		}),
	}
	svc := NewCheckoutService(store, &mockGateway{}, "")

	_, err := svc.PlaceOrder(ctx, CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 2, RentalType: model.RentalDaily}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-03"),
		PaymentMethod: model.PaymentCash,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, store.createdOrders)
}

func TestPlaceOrder_StoreRejectsOversell(t *testing.T) {
	// The pre-check passes but a concurrent checkout wins the decrement.
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, Title: "Oak Desk", DailyRate: 100, AvailableQuantity: 2},
		}),
		createOrderFn: func(ctx context.Context, order *model.RentalOrder) error {
			return ErrInsufficientStock
		},
	}
	svc := NewCheckoutService(store, &mockGateway{}, "")

	_, err := svc.PlaceOrder(ctx, CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 2, RentalType: model.RentalDaily}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-03"),
		PaymentMethod: model.PaymentCash,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, store.createdPayments)
}

func TestPlaceOrder_Validation(t *testing.T) {
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, DailyRate: 100, AvailableQuantity: 5},
		}),
	}
	svc := NewCheckoutService(store, &mockGateway{}, "")

	base := CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 1, RentalType: model.RentalDaily}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-03"),
		PaymentMethod: model.PaymentCash,
	}

	empty := base
	empty.Items = nil
	_, err := svc.PlaceOrder(ctx, empty)
	require.ErrorIs(t, err, ErrEmptyCart)

	sameDay := base
	sameDay.EndDate = sameDay.StartDate
	_, err = svc.PlaceOrder(ctx, sameDay)
	require.ErrorIs(t, err, ErrInvalidDates)

	reversed := base
	reversed.StartDate, reversed.EndDate = reversed.EndDate, reversed.StartDate
	_, err = svc.PlaceOrder(ctx, reversed)
	require.ErrorIs(t, err, ErrInvalidDates)

	zeroQty := base
	zeroQty.Items = []CheckoutItem{{FurnitureID: 7, Quantity: 0, RentalType: model.RentalDaily}}
	_, err = svc.PlaceOrder(ctx, zeroQty)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	badType := base
	badType.Items = []CheckoutItem{{FurnitureID: 7, Quantity: 1, RentalType: "HOURLY"}}
	_, err = svc.PlaceOrder(ctx, badType)
	require.ErrorIs(t, err, ErrInvalidRentalType)

	badMethod := base
	badMethod.PaymentMethod = "CRYPTO"
	_, err = svc.PlaceOrder(ctx, badMethod)
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	missing := base
	missing.Items = []CheckoutItem{{FurnitureID: 99, Quantity: 1, RentalType: model.RentalDaily}}
	_, err = svc.PlaceOrder(ctx, missing)
	require.ErrorIs(t, err, ErrFurnitureNotFound)
}

func TestPlaceOrder_KhaltiInitiate(t *testing.T) {
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, Title: "Oak Desk", WeeklyRate: 700, AvailableQuantity: 5},
		}),
	}

	var seen khalti.InitiateRequest
	gateway := &mockGateway{
		initiateFn: func(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error) {
			seen = req
			return &khalti.InitiateResponse{
				Pidx:       "pidx-abc",
				PaymentURL: "https://pay.khalti.com/?pidx=pidx-abc",
				ExpiresAt:  "2026-03-01T12:00:00+05:45",
			}, nil
		},
	}
	svc := NewCheckoutService(store, gateway, "https://furnirent.example")

	result, err := svc.PlaceOrder(ctx, CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 1, RentalType: model.RentalWeekly}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-08"),
		PaymentMethod: model.PaymentKhalti,
		CustomerName:  "Sita Rai",
		ReturnURL:     "https://furnirent.example/payment/return",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	require.Equal(t, "pidx-abc", result.Pidx)
	require.Equal(t, "https://pay.khalti.com/?pidx=pidx-abc", result.PaymentURL)

	require.Equal(t, 700.0, seen.Amount)
	require.Equal(t, "ORDER-1", seen.PurchaseOrderID)
	require.Equal(t, "Oak Desk", seen.PurchaseOrderName)
	require.Equal(t, "https://furnirent.example", seen.WebsiteURL)
	require.Equal(t, "Sita Rai", seen.Customer.Name)

	require.Equal(t, model.PaymentPending, result.Payment.Status)
	require.Equal(t, "pidx-abc", store.storedPidxValues[result.Payment.ID])
	require.Empty(t, store.cancelledOrders)
}

func TestPlaceOrder_KhaltiInitiateFailureCompensates(t *testing.T) {
	ctx := context.Background()
	store := &mockCheckoutStore{
		getFurnitureFn: catalogWith(map[uint]*model.FurnitureItem{
			7: {ID: 7, Title: "Oak Desk", DailyRate: 100, AvailableQuantity: 5},
		}),
	}
	gateway := &mockGateway{
		initiateFn: func(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error) {
			return nil, &khalti.GatewayError{StatusCode: 503, Message: "upstream down"}
		},
	}
	svc := NewCheckoutService(store, gateway, "")

	_, err := svc.PlaceOrder(ctx, CheckoutInput{
		UserID:        3,
		Items:         []CheckoutItem{{FurnitureID: 7, Quantity: 1, RentalType: model.RentalDaily}},
		StartDate:     day("2026-03-01"),
		EndDate:       day("2026-03-02"),
		PaymentMethod: model.PaymentKhalti,
	})

	var gatewayErr *khalti.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	// The order and its payment never reached the customer, so both are
	// rolled back: payment FAILED, order cancelled (stock restored).
	require.Equal(t, []uint{1}, store.failedPayments)
	require.Equal(t, []uint{1}, store.cancelledOrders)
}

// --- cancellation ---

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	orders := map[uint]*model.RentalOrder{
		1: {ID: 1, UserID: 3, Status: model.RentalPending},
		2: {ID: 2, UserID: 4, Status: model.RentalPending},
		3: {ID: 3, UserID: 3, Status: model.RentalActive},
	}
	store := &mockCheckoutStore{
		getOrderFn: func(ctx context.Context, id uint) (*model.RentalOrder, error) {
			order, ok := orders[id]
			if !ok {
				return nil, ErrOrderNotFound
			}
			return order, nil
		},
	}
	svc := NewCheckoutService(store, &mockGateway{}, "")

	require.NoError(t, svc.CancelOrder(ctx, 3, 1))
	require.Equal(t, []uint{1}, store.cancelledOrders)

	require.ErrorIs(t, svc.CancelOrder(ctx, 3, 2), ErrNotOrderOwner)
	require.ErrorIs(t, svc.CancelOrder(ctx, 3, 3), ErrOrderNotCancellable)
	require.ErrorIs(t, svc.CancelOrder(ctx, 3, 99), ErrOrderNotFound)
}
