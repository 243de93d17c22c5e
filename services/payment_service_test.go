package services

import (
	"context"
	"testing"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/khalti"
	"github.com/stretchr/testify/require"
)

type mockPaymentStore struct {
	payments map[uint]*model.PaymentRecord

	succeededCalls int
}

var _ PaymentStore = (*mockPaymentStore)(nil)

func (m *mockPaymentStore) GetPayment(ctx context.Context, id uint) (*model.PaymentRecord, error) {
	payment, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *payment
	return &cp, nil
}

func (m *mockPaymentStore) MarkPaymentSucceeded(ctx context.Context, paymentID uint, transactionID string, paidAt time.Time, meta []byte) error {
	payment, ok := m.payments[paymentID]
	if !ok {
		return ErrPaymentNotFound
	}
	if payment.Status == model.PaymentSuccess {
		return nil
	}
	if payment.Status != model.PaymentPending {
		return ErrPaymentAlreadyFinal
	}
	m.succeededCalls++
	payment.Status = model.PaymentSuccess
	payment.TransactionID = &transactionID
	payment.PaidAt = &paidAt
	return nil
}

func pendingPayment(id uint, amount float64, pidx string) *model.PaymentRecord {
	return &model.PaymentRecord{
		ID:            id,
		OrderID:       id,
		PaymentMethod: model.PaymentKhalti,
		Status:        model.PaymentPending,
		Amount:        amount,
		Pidx:          pidx,
	}
}

func completedLookup(amountPaisa int64) *mockGateway {
	return &mockGateway{
		verifyFn: func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
			return &khalti.VerifyResult{
				Verified:      true,
				Status:        khalti.StatusCompleted,
				TransactionID: "txn-001",
				TotalAmount:   amountPaisa,
			}, nil
		},
	}
}

func TestVerifyPayment_Success(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-abc"),
	}}
	svc := NewPaymentService(store, completedLookup(40000))

	record, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.NoError(t, err)
	require.Equal(t, model.PaymentSuccess, record.Status)
	require.NotNil(t, record.TransactionID)
	require.Equal(t, "txn-001", *record.TransactionID)
	require.NotNil(t, record.PaidAt)
}

func TestVerifyPayment_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-abc"),
	}}

	gatewayCalls := 0
	gateway := &mockGateway{
		verifyFn: func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
			gatewayCalls++
			return &khalti.VerifyResult{
				Verified:      true,
				Status:        khalti.StatusCompleted,
				TransactionID: "txn-001",
				TotalAmount:   40000,
			}, nil
		},
	}
	svc := NewPaymentService(store, gateway)

	first, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.NoError(t, err)
	require.Equal(t, model.PaymentSuccess, first.Status)

	// A reloaded redirect page re-verifies; nothing changes and the
	// gateway is not consulted again.
	second, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.NoError(t, err)
	require.Equal(t, model.PaymentSuccess, second.Status)
	require.Equal(t, *first.TransactionID, *second.TransactionID)
	require.Equal(t, 1, gatewayCalls)
	require.Equal(t, 1, store.succeededCalls)
}

func TestVerifyPayment_PendingStatusLeavesRecordPending(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-abc"),
	}}
	gateway := &mockGateway{
		verifyFn: func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
			return &khalti.VerifyResult{Verified: false, Status: "Pending"}, nil
		},
	}
	svc := NewPaymentService(store, gateway)

	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.ErrorIs(t, err, ErrVerificationFailed)

	// The record stays PENDING so the same identifiers can be retried.
	require.Equal(t, model.PaymentPending, store.payments[1].Status)
	require.Zero(t, store.succeededCalls)
}

func TestVerifyPayment_AmountMismatch(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-abc"),
	}}
	// Provider settled a different amount than we charged.
	svc := NewPaymentService(store, completedLookup(10000))

	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.Equal(t, model.PaymentPending, store.payments[1].Status)
}

func TestVerifyPayment_PrefersStoredPidx(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-stored"),
	}}

	var seen khalti.VerifyRequest
	gateway := &mockGateway{
		verifyFn: func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
			seen = req
			return &khalti.VerifyResult{
				Verified:    true,
				Status:      khalti.StatusCompleted,
				TotalAmount: 40000,
			}, nil
		},
	}
	svc := NewPaymentService(store, gateway)

	// The client claims a different pidx; the one recorded at initiate wins.
	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-forged"})
	require.NoError(t, err)
	require.Equal(t, "pidx-stored", seen.Pidx)
}

func TestVerifyPayment_GatewayErrorLeavesRecordPending(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{
		1: pendingPayment(1, 400, "pidx-abc"),
	}}
	gateway := &mockGateway{
		verifyFn: func(ctx context.Context, req khalti.VerifyRequest) (*khalti.VerifyResult, error) {
			return nil, &khalti.GatewayError{StatusCode: 502, Message: "bad gateway"}
		},
	}
	svc := NewPaymentService(store, gateway)

	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	var gatewayErr *khalti.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, model.PaymentPending, store.payments[1].Status)
}

func TestVerifyPayment_OwnershipCheck(t *testing.T) {
	ctx := context.Background()
	payment := pendingPayment(1, 400, "pidx-abc")
	payment.Order = model.RentalOrder{ID: 1, UserID: 3}
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{1: payment}}
	svc := NewPaymentService(store, completedLookup(40000))

	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc", UserID: 4})
	require.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc", UserID: 3})
	require.NoError(t, err)
}

func TestVerifyPayment_FailedRecordIsFinal(t *testing.T) {
	ctx := context.Background()
	failed := pendingPayment(1, 400, "pidx-abc")
	failed.Status = model.PaymentFailed
	store := &mockPaymentStore{payments: map[uint]*model.PaymentRecord{1: failed}}
	svc := NewPaymentService(store, completedLookup(40000))

	_, err := svc.VerifyPayment(ctx, VerifyInput{PaymentID: 1, Pidx: "pidx-abc"})
	require.ErrorIs(t, err, ErrPaymentAlreadyFinal)
}
