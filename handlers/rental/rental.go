package rental

import (
	"errors"
	"strconv"
	"time"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services"
	"github.com/furnirent/furnirent-api/services/khalti"
	"github.com/furnirent/furnirent-api/utils/middleware"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/furnirent/furnirent-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DateLayout is the wire format for rental period dates
const DateLayout = "2006-01-02"

// RentalHandler handles customer-facing rental requests
type RentalHandler struct {
	db        *gorm.DB
	checkout  *services.CheckoutService
	validator *validation.Validator
}

// NewRentalHandler creates a new rental handler
func NewRentalHandler(db *gorm.DB, checkout *services.CheckoutService) *RentalHandler {
	return &RentalHandler{
		db:        db,
		checkout:  checkout,
		validator: validation.NewValidator(),
	}
}

// OrderItemRequest is one cart line in a checkout request
type OrderItemRequest struct {
	FurnitureID uint   `json:"furnitureId" validate:"required,min=1"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	RentalType  string `json:"rentalType" validate:"required"`
}

// DeliveryAddressRequest is where the furniture should be delivered
type DeliveryAddressRequest struct {
	AddressLine string `json:"addressLine" validate:"required,min=3"`
	City        string `json:"city" validate:"required,min=2"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=7,max=20"`
}

// CustomerInfoRequest is the payer identity forwarded to the gateway
type CustomerInfoRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" validate:"required,min=1,dive"`
	StartDate       string                 `json:"startDate" validate:"required"`
	EndDate         string                 `json:"endDate" validate:"required"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
	DiscountCode    string                 `json:"discountCode,omitempty"`
	DeliveryAddress DeliveryAddressRequest `json:"deliveryAddress" validate:"required"`
	CustomerInfo    CustomerInfoRequest    `json:"customer_info"`
	ReturnURL       string                 `json:"return_url" validate:"omitempty,url"`
}

// ToCheckoutInput converts the validated request into the service input.
func (r *PlaceOrderRequest) ToCheckoutInput(userID uint) (services.CheckoutInput, error) {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return services.CheckoutInput{}, errors.New("startDate must be formatted as YYYY-MM-DD")
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return services.CheckoutInput{}, errors.New("endDate must be formatted as YYYY-MM-DD")
	}

	items := make([]services.CheckoutItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, services.CheckoutItem{
			FurnitureID: item.FurnitureID,
			Quantity:    item.Quantity,
			RentalType:  model.RentalType(item.RentalType),
		})
	}

	return services.CheckoutInput{
		Items:         items,
		StartDate:     start,
		EndDate:       end,
		PaymentMethod: model.PaymentMethod(r.PaymentMethod),
		DiscountCode:  validation.SanitizeString(r.DiscountCode),
		AddressLine:   validation.SanitizeString(r.DeliveryAddress.AddressLine),
		City:          validation.SanitizeString(r.DeliveryAddress.City),
		PhoneNumber:   validation.SanitizeString(r.DeliveryAddress.PhoneNumber),
		CustomerName:  validation.SanitizeString(r.CustomerInfo.Name),
		CustomerEmail: r.CustomerInfo.Email,
		CustomerPhone: validation.SanitizeString(r.CustomerInfo.Phone),
		ReturnURL:     r.ReturnURL,
		UserID:        userID,
	}, nil
}

// KhaltiDetails is the hosted payment info returned for gateway checkouts
type KhaltiDetails struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// CashOrderResponse is returned for cash-on-delivery checkouts
type CashOrderResponse struct {
	OrderID     uint               `json:"orderId"`
	TotalAmount float64            `json:"totalAmount"`
	Rentals     []model.RentalLine `json:"rentals"`
}

// GatewayOrderResponse is returned for Khalti checkouts
type GatewayOrderResponse struct {
	OrderID     uint          `json:"orderId"`
	RentalIDs   []uint        `json:"rentalIds"`
	PaymentID   uint          `json:"paymentId"`
	TotalAmount float64       `json:"totalAmount"`
	Khalti      KhaltiDetails `json:"khalti"`
}

// MapCheckoutError translates service errors into the HTTP error envelope.
func MapCheckoutError(c *fiber.Ctx, err error) error {
	var gatewayErr *khalti.GatewayError
	switch {
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidDates),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidRentalType),
		errors.Is(err, services.ErrInvalidPaymentMethod):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrFurnitureNotFound):
		return response.NotFound(c, "Furniture not found")
	case errors.Is(err, services.ErrInsufficientStock):
		return response.BadRequest(c, "Not enough furniture in stock")
	case errors.Is(err, services.ErrOrderNotFound):
		return response.NotFound(c, "Rental order not found")
	case errors.Is(err, services.ErrNotOrderOwner):
		return response.Forbidden(c, "This rental order belongs to another user")
	case errors.Is(err, services.ErrOrderNotCancellable):
		return response.BadRequest(c, "Only pending orders can be cancelled")
	case errors.As(err, &gatewayErr):
		return response.BadGateway(c, "Payment gateway is unavailable, please try again")
	default:
		return response.InternalServerError(c, "Failed to process rental order")
	}
}

// GatewayResponse builds the gateway checkout response body.
func GatewayResponse(result *services.CheckoutResult) GatewayOrderResponse {
	rentalIDs := make([]uint, 0, len(result.Order.Lines))
	for _, line := range result.Order.Lines {
		rentalIDs = append(rentalIDs, line.ID)
	}
	return GatewayOrderResponse{
		OrderID:     result.Order.ID,
		RentalIDs:   rentalIDs,
		PaymentID:   result.Payment.ID,
		TotalAmount: result.Order.TotalAmount,
		Khalti: KhaltiDetails{
			Pidx:       result.Pidx,
			PaymentURL: result.PaymentURL,
			ExpiresAt:  result.ExpiresAt,
		},
	}
}

// PlaceOrder handles POST /api/v1/rental/place. Cash orders settle
// out-of-band and return immediately; Khalti orders also initiate the hosted
// payment and return its redirect details.
func (h *RentalHandler) PlaceOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	input, err := req.ToCheckoutInput(userID)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.checkout.PlaceOrder(c.Context(), input)
	if err != nil {
		return MapCheckoutError(c, err)
	}

	if result.Payment == nil {
		return response.Created(c, CashOrderResponse{
			OrderID:     result.Order.ID,
			TotalAmount: result.Order.TotalAmount,
			Rentals:     result.Order.Lines,
		})
	}

	return response.Created(c, GatewayResponse(result))
}

// MyRentals handles GET /api/v1/rental/my
func (h *RentalHandler) MyRentals(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	status := c.Query("status", "")

	query := h.db.Model(&model.RentalOrder{}).Where("user_id = ?", userID)

	if status != "" {
		st := model.RentalStatus(status)
		if !st.Valid() {
			return response.BadRequest(c, "Invalid rental status")
		}
		query = query.Where("status = ?", st)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count rental orders")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var orders []model.RentalOrder
	if err := query.Preload("Lines").
		Preload("Lines.Furniture").
		Preload("Payment").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch rental orders")
	}

	return response.Paginated(c, orders, pagination)
}

// GetOrder handles GET /api/v1/rental/:id
func (h *RentalHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	id := c.Params("id")

	var order model.RentalOrder
	err := h.db.Preload("Lines").
		Preload("Lines.Furniture").
		Preload("Payment").
		First(&order, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Rental order not found")
		}
		return response.InternalServerError(c, "Failed to fetch rental order")
	}

	if order.UserID != userID {
		return response.Forbidden(c, "This rental order belongs to another user")
	}

	return response.Success(c, order)
}

// CancelOrder handles POST /api/v1/rental/:id/cancel. Only the owner may
// cancel, only while the order is still PENDING, and cancellation restores
// the stock the order had committed.
func (h *RentalHandler) CancelOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid order id")
	}

	if err := h.checkout.CancelOrder(c.Context(), userID, uint(orderID)); err != nil {
		return MapCheckoutError(c, err)
	}

	return response.SuccessWithMessage(c, "Rental order cancelled", nil)
}
