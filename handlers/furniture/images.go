package furniture

import (
	"strconv"
	"strings"

	"github.com/furnirent/furnirent-api/model"
	"github.com/furnirent/furnirent-api/services/spaces"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxImageSize = 10 << 20 // 10 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadImage handles POST /api/v1/furniture/:id/images (admin only).
// Expects a multipart form with an "image" file field.
func (h *FurnitureHandler) UploadImage(c *fiber.Ctx) error {
	if h.spaces == nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "Image storage is not configured")
	}

	furnitureID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid furniture id")
	}

	var item model.FurnitureItem
	if err := h.db.First(&item, furnitureID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Furniture not found")
		}
		return response.InternalServerError(c, "Failed to fetch furniture")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return response.BadRequest(c, "Image file is required")
	}

	if fileHeader.Size > maxImageSize {
		return response.BadRequest(c, "Image must be smaller than 10MB")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[strings.ToLower(contentType)] {
		return response.BadRequest(c, "Only JPEG, PNG and WebP images are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	key := spaces.FurnitureImageKey(item.ID, fileHeader.Filename)
	url, err := h.spaces.UploadFile(c.Context(), key, file, contentType)
	if err != nil {
		return response.BadGateway(c, "Failed to upload image")
	}

	image := model.FurnitureImage{
		FurnitureID: item.ID,
		URL:         url,
		StorageKey:  key,
	}

	if err := h.db.Create(&image).Error; err != nil {
		// Best effort cleanup of the orphaned object.
		_ = h.spaces.DeleteFile(c.Context(), key)
		return response.InternalServerError(c, "Failed to save image record")
	}

	return response.Created(c, image)
}

// DeleteImage handles DELETE /api/v1/furniture/:id/images/:imageId (admin only)
func (h *FurnitureHandler) DeleteImage(c *fiber.Ctx) error {
	furnitureID := c.Params("id")
	imageID := c.Params("imageId")

	var image model.FurnitureImage
	err := h.db.Where("furniture_id = ?", furnitureID).First(&image, imageID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Image not found")
		}
		return response.InternalServerError(c, "Failed to fetch image")
	}

	if h.spaces != nil {
		if err := h.spaces.DeleteFile(c.Context(), image.StorageKey); err != nil {
			return response.BadGateway(c, "Failed to delete stored image")
		}
	}

	if err := h.db.Delete(&image).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete image record")
	}

	return response.SuccessWithMessage(c, "Image deleted", nil)
}
