package rental

import (
	"strconv"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UpdateLineStatusRequest updates fulfillment fields on a rental line.
// Fields left out of the body keep their current value.
type UpdateLineStatusRequest struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	DeliveryStatus *string `json:"deliveryStatus"`
}

// ListOrders handles GET /api/v1/admin/rentals (admin only)
func (h *RentalHandler) ListOrders(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	status := c.Query("status", "")
	userID := c.Query("user_id", "")

	query := h.db.Model(&model.RentalOrder{})

	if status != "" {
		st := model.RentalStatus(status)
		if !st.Valid() {
			return response.BadRequest(c, "Invalid rental status")
		}
		query = query.Where("status = ?", st)
	}

	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count rental orders")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var orders []model.RentalOrder
	if err := query.Preload("User").
		Preload("Lines").
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

// UpdateLineStatus handles PATCH /api/v1/admin/rentals/lines/:id (admin only)
func (h *RentalHandler) UpdateLineStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var line model.RentalLine
	if err := h.db.First(&line, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Rental line not found")
		}
		return response.InternalServerError(c, "Failed to fetch rental line")
	}

	var req UpdateLineStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Status == nil && req.PaymentStatus == nil && req.DeliveryStatus == nil {
		return response.BadRequest(c, "At least one status field is required")
	}

	if req.Status != nil {
		st := model.RentalStatus(*req.Status)
		if !st.Valid() {
			return response.BadRequest(c, "Invalid rental status")
		}
		line.Status = st
	}
	if req.PaymentStatus != nil {
		ps := model.PaymentStatus(*req.PaymentStatus)
		if !ps.Valid() {
			return response.BadRequest(c, "Invalid payment status")
		}
		line.PaymentStatus = ps
	}
	if req.DeliveryStatus != nil {
		ds := model.DeliveryStatus(*req.DeliveryStatus)
		if !ds.Valid() {
			return response.BadRequest(c, "Invalid delivery status")
		}
		line.DeliveryStatus = ds
	}

	if err := h.db.Save(&line).Error; err != nil {
		return response.InternalServerError(c, "Failed to update rental line")
	}

	return response.Success(c, line)
}
