package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/middleware"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/krishkalaria12/cropcare/service"
)

const uploadField = "image"

type uploadResponse struct {
	Image      *models.PlantImage `json:"image"`
	Prediction *models.Prediction `json:"prediction"`
}

// UploadImage stores the photo and runs the analysis right away. If the analysis fails the image is
// still returned and the results page generates one on first view.
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	file, err := c.FormFile(uploadField)
	if err != nil {
		return h.fail(c, service.ErrEmptyFile)
	}

	blobFile, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error opening the file",
			"data":    nil,
		})
	}
	defer blobFile.Close()

	ctx := c.UserContext()
	image, err := h.images.Intake(ctx, userID, file.Filename, blobFile)
	if err != nil {
		return h.fail(c, err)
	}

	prediction, err := h.diagnoses.Generate(ctx, image.ID)
	if err != nil {
		h.log.Warn("Analysis after upload failed", "image_id", image.ID, "error", err)
		return respond(c, fiber.StatusCreated, "Image uploaded", uploadResponse{Image: image})
	}

	return respond(c, fiber.StatusCreated, "Image uploaded and analyzed", uploadResponse{Image: image, Prediction: prediction})
}

func (h *Handler) History(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	images, err := h.images.History(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "History loaded", images)
}

func (h *Handler) DeleteImage(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	imageID, err := imageIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.images.Delete(c.UserContext(), userID, imageID); err != nil {
		return h.fail(c, err)
	}

	return respond(c, fiber.StatusOK, "Item deleted", nil)
}
