package payment

import (
	"errors"
	"strconv"

	"github.com/furnirent/furnirent-api/handlers/rental"
	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services"
	"github.com/furnirent/furnirent-api/services/khalti"
	"github.com/furnirent/furnirent-api/utils/middleware"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/furnirent/furnirent-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// KhaltiHandler handles gateway checkout and verification requests
type KhaltiHandler struct {
	checkout  *services.CheckoutService
	payments  *services.PaymentService
	validator *validation.Validator
}

// NewKhaltiHandler creates a new Khalti payment handler
func NewKhaltiHandler(checkout *services.CheckoutService, payments *services.PaymentService) *KhaltiHandler {
	return &KhaltiHandler{
		checkout:  checkout,
		payments:  payments,
		validator: validation.NewValidator(),
	}
}

// PaymentResponse is the verified payment state returned to the client
type PaymentResponse struct {
	ID            uint                `json:"id"`
	OrderID       uint                `json:"order_id"`
	Status        model.PaymentStatus `json:"status"`
	Amount        float64             `json:"amount"`
	Pidx          string              `json:"pidx,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	PaidAt        string              `json:"paid_at,omitempty"`
}

func toPaymentResponse(p *model.PaymentRecord) PaymentResponse {
	res := PaymentResponse{
		ID:      p.ID,
		OrderID: p.OrderID,
		Status:  p.Status,
		Amount:  p.Amount,
		Pidx:    p.Pidx,
	}
	if p.TransactionID != nil {
		res.TransactionID = *p.TransactionID
	}
	if p.PaidAt != nil {
		res.PaidAt = p.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return res
}

// Initiate handles POST /api/v1/khalti/initiate. It is the same checkout as
// /rental/place with the payment method forced to KHALTI.
func (h *KhaltiHandler) Initiate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req rental.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.PaymentMethod = string(model.PaymentKhalti)

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	input, err := req.ToCheckoutInput(userID)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.checkout.PlaceOrder(c.Context(), input)
	if err != nil {
		return rental.MapCheckoutError(c, err)
	}

	return response.Success(c, rental.GatewayResponse(result))
}

// Verify handles GET /api/v1/khalti/verify.
//
// The query carries whatever identifiers the gateway redirect produced
// (pidx for ePayment, token+amount for the legacy widget) plus our own
// paymentId. None of it is trusted: the service re-confirms with the
// provider before any state changes.
func (h *KhaltiHandler) Verify(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	paymentID, err := strconv.ParseUint(c.Query("paymentId"), 10, 32)
	if err != nil || paymentID == 0 {
		return response.BadRequest(c, "paymentId query parameter is required")
	}

	var amount int64
	if raw := c.Query("amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "amount must be an integer paisa value")
		}
	}

	record, err := h.payments.VerifyPayment(c.Context(), services.VerifyInput{
		PaymentID: uint(paymentID),
		Pidx:      c.Query("pidx"),
		Token:     c.Query("token"),
		Amount:    amount,
		UserID:    userID,
	})
	if err != nil {
		return h.mapVerifyError(c, err)
	}

	return response.Success(c, fiber.Map{
		"payment": toPaymentResponse(record),
	})
}

func (h *KhaltiHandler) mapVerifyError(c *fiber.Ctx, err error) error {
	var gatewayErr *khalti.GatewayError
	switch {
	case errors.Is(err, services.ErrPaymentNotFound):
		return response.NotFound(c, "Payment record not found")
	case errors.Is(err, services.ErrNotOrderOwner):
		return response.Forbidden(c, "This payment belongs to another user")
	case errors.Is(err, services.ErrPaymentAlreadyFinal):
		return response.Conflict(c, "Payment record is already finalized")
	case errors.Is(err, services.ErrVerificationFailed):
		return response.BadRequest(c, "Payment could not be verified")
	case errors.Is(err, khalti.ErrInvalidVerifyRequest):
		return response.BadRequest(c, "Either pidx or token and amount are required")
	case errors.As(err, &gatewayErr):
		return response.BadGateway(c, "Payment gateway is unavailable, please try again")
	default:
		return response.InternalServerError(c, "Failed to verify payment")
	}
}
