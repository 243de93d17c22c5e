package services

import (
	"context"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/khalti"
)

// PaymentStore is the persistence boundary of payment verification.
// MarkPaymentSucceeded must flip the payment record, every line of its order,
// and the order itself inside one transaction.
type PaymentStore interface {
	GetPayment(ctx context.Context, id uint) (*model.PaymentRecord, error)
	MarkPaymentSucceeded(ctx context.Context, paymentID uint, transactionID string, paidAt time.Time, meta []byte) error
}

// VerifyInput carries the identifiers from the client redirect. All of it is
// untrusted: state only changes after the provider confirms server-to-server.
type VerifyInput struct {
	PaymentID uint
	Pidx      string
	Token     string
	Amount    int64 // paisa, legacy shape only
	UserID    uint  // requesting user; zero skips the ownership check
}

// PaymentService re-confirms gateway payments and applies the resulting
// state transition exactly once.
type PaymentService struct {
	store   PaymentStore
	gateway khalti.Client
}

// NewPaymentService creates a new payment verification service
func NewPaymentService(store PaymentStore, gateway khalti.Client) *PaymentService {
	return &PaymentService{store: store, gateway: gateway}
}

// VerifyPayment drives the PENDING -> SUCCESS transition.
//
// An already-SUCCESS record is returned verbatim without touching the
// gateway, so reloading the redirect page or a duplicate provider callback
// can never re-apply the activation. An unverified lookup leaves the record
// PENDING and retryable with the same identifiers.
func (s *PaymentService) VerifyPayment(ctx context.Context, in VerifyInput) (*model.PaymentRecord, error) {
	payment, err := s.store.GetPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	if in.UserID != 0 && payment.Order.UserID != in.UserID {
		return nil, ErrNotOrderOwner
	}

	if payment.Status == model.PaymentSuccess {
		return payment, nil
	}
	if payment.Status != model.PaymentPending {
		return nil, ErrPaymentAlreadyFinal
	}

	// Prefer the pidx we stored at initiate over anything the client sent.
	pidx := payment.Pidx
	if pidx == "" {
		pidx = in.Pidx
	}

	result, err := s.gateway.Verify(ctx, khalti.VerifyRequest{
		Pidx:   pidx,
		Token:  in.Token,
		Amount: in.Amount,
	})
	if err != nil {
		return nil, err
	}
	if !result.Verified {
		return nil, ErrVerificationFailed
	}
	// The provider reports the settled amount; a mismatch means the
	// identifiers belong to some other (or tampered) transaction.
	if result.TotalAmount > 0 && result.TotalAmount != payment.AmountPaisa() {
		return nil, ErrVerificationFailed
	}

	if err := s.store.MarkPaymentSucceeded(ctx, payment.ID, result.TransactionID, time.Now().UTC(), result.Raw); err != nil {
		return nil, err
	}

	return s.store.GetPayment(ctx, payment.ID)
}
