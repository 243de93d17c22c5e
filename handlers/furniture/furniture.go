package furniture

import (
	"strconv"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/spaces"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/furnirent/furnirent-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// FurnitureHandler handles catalog requests
type FurnitureHandler struct {
	db        *gorm.DB
	spaces    *spaces.Client
	validator *validation.Validator
}

// NewFurnitureHandler creates a new furniture handler. The spaces client may
// be nil, in which case image endpoints report an error instead of uploading.
func NewFurnitureHandler(db *gorm.DB, spacesClient *spaces.Client) *FurnitureHandler {
	return &FurnitureHandler{
		db:        db,
		spaces:    spacesClient,
		validator: validation.NewValidator(),
	}
}

// CreateFurnitureRequest represents the request body for creating a catalog item
type CreateFurnitureRequest struct {
	Title             string  `json:"title" validate:"required,min=3,max=255"`
	Description       string  `json:"description" validate:"omitempty,max=2000"`
	Category          string  `json:"category" validate:"required"`
	DailyRate         float64 `json:"daily_rate" validate:"required,gt=0"`
	WeeklyRate        float64 `json:"weekly_rate" validate:"required,gt=0"`
	MonthlyRate       float64 `json:"monthly_rate" validate:"required,gt=0"`
	AvailableQuantity int     `json:"available_quantity" validate:"gte=0"`
}

// UpdateFurnitureRequest represents the request body for updating a catalog item
type UpdateFurnitureRequest struct {
	Title             *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description       *string  `json:"description" validate:"omitempty,max=2000"`
	Category          *string  `json:"category"`
	DailyRate         *float64 `json:"daily_rate" validate:"omitempty,gt=0"`
	WeeklyRate        *float64 `json:"weekly_rate" validate:"omitempty,gt=0"`
	MonthlyRate       *float64 `json:"monthly_rate" validate:"omitempty,gt=0"`
	AvailableQuantity *int     `json:"available_quantity" validate:"omitempty,gte=0"`
}

// ListFurniture handles GET /api/v1/furniture
func (h *FurnitureHandler) ListFurniture(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "12"))
	search := c.Query("search", "")
	category := c.Query("category", "")
	inStock := c.Query("in_stock", "")

	query := h.db.Model(&model.FurnitureItem{})

	if search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	if category != "" {
		cat := model.FurnitureCategory(category)
		if !cat.Valid() {
			return response.BadRequest(c, "Invalid furniture category")
		}
		query = query.Where("category = ?", cat)
	}

	if inStock == "true" {
		query = query.Where("available_quantity > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count furniture")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var items []model.FurnitureItem
	if err := query.Preload("Images").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch furniture")
	}

	return response.Paginated(c, items, pagination)
}

// GetFurniture handles GET /api/v1/furniture/:id
func (h *FurnitureHandler) GetFurniture(c *fiber.Ctx) error {
	id := c.Params("id")

	var item model.FurnitureItem
	if err := h.db.Preload("Images").First(&item, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Furniture not found")
		}
		return response.InternalServerError(c, "Failed to fetch furniture")
	}

	return response.Success(c, item)
}

// CreateFurniture handles POST /api/v1/furniture (admin only)
func (h *FurnitureHandler) CreateFurniture(c *fiber.Ctx) error {
	var req CreateFurnitureRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	category := model.FurnitureCategory(req.Category)
	if !category.Valid() {
		return response.BadRequest(c, "Invalid furniture category")
	}

	item := model.FurnitureItem{
		Title:             validation.SanitizeString(req.Title),
		Description:       validation.SanitizeString(req.Description),
		Category:          category,
		DailyRate:         req.DailyRate,
		WeeklyRate:        req.WeeklyRate,
		MonthlyRate:       req.MonthlyRate,
		AvailableQuantity: req.AvailableQuantity,
	}

	if err := h.db.Create(&item).Error; err != nil {
		return response.InternalServerError(c, "Failed to create furniture")
	}

	return response.Created(c, item)
}

// UpdateFurniture handles PUT /api/v1/furniture/:id (admin only).
// Only the fields present in the body are changed.
func (h *FurnitureHandler) UpdateFurniture(c *fiber.Ctx) error {
	id := c.Params("id")

	var item model.FurnitureItem
	if err := h.db.First(&item, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Furniture not found")
		}
		return response.InternalServerError(c, "Failed to fetch furniture")
	}

	var req UpdateFurnitureRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if req.Title != nil {
		item.Title = validation.SanitizeString(*req.Title)
	}
	if req.Description != nil {
		item.Description = validation.SanitizeString(*req.Description)
	}
	if req.Category != nil {
		category := model.FurnitureCategory(*req.Category)
		if !category.Valid() {
			return response.BadRequest(c, "Invalid furniture category")
		}
		item.Category = category
	}
	if req.DailyRate != nil {
		item.DailyRate = *req.DailyRate
	}
	if req.WeeklyRate != nil {
		item.WeeklyRate = *req.WeeklyRate
	}
	if req.MonthlyRate != nil {
		item.MonthlyRate = *req.MonthlyRate
	}
	if req.AvailableQuantity != nil {
		item.AvailableQuantity = *req.AvailableQuantity
	}

	if err := h.db.Save(&item).Error; err != nil {
		return response.InternalServerError(c, "Failed to update furniture")
	}

	return response.Success(c, item)
}

// DeleteFurniture handles DELETE /api/v1/furniture/:id (admin only)
func (h *FurnitureHandler) DeleteFurniture(c *fiber.Ctx) error {
	id := c.Params("id")

	var item model.FurnitureItem
	if err := h.db.First(&item, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Furniture not found")
		}
		return response.InternalServerError(c, "Failed to fetch furniture")
	}

	if err := h.db.Delete(&item).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete furniture")
	}

	return response.SuccessWithMessage(c, "Furniture deleted", nil)
}
