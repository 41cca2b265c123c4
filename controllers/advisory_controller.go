package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmhelper/farmhelper_backend/middleware"
	"github.com/farmhelper/farmhelper_backend/models"
	"github.com/farmhelper/farmhelper_backend/services"
	"github.com/farmhelper/farmhelper_backend/utils"
)

// AdvisoryController exposes the fertilizer advisory endpoint.
type AdvisoryController struct {
	advisory *services.AdvisoryService
	logger   *log.Logger
}

func NewAdvisoryController(advisory *services.AdvisoryService) *AdvisoryController {
	return &AdvisoryController{
		advisory: advisory,
		logger:   log.New(os.Stdout, "[ADVISORY] ", log.LstdFlags),
	}
}

// Soil generates a fertilizer advisory for the submitted farmer profile.
// locality, cropType, growthStage and soilType are required; message is
// optional extra context for the prompt.
func (ac *AdvisoryController) Soil(c echo.Context) error {
	// The pipeline makes two sequential AI calls; allow it more headroom than
	// the database handlers get.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	var req models.AdvisoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Enter all Fields",
		})
	}

	req.Locality = utils.SanitizeInput(req.Locality)
	req.CropType = utils.SanitizeInput(req.CropType)
	req.GrowthStage = utils.SanitizeInput(req.GrowthStage)
	req.SoilType = utils.SanitizeInput(req.SoilType)
	req.Message = utils.SanitizeInput(req.Message)

	userID := middleware.GetUserIDFromToken(c)
	ac.logger.Printf("soil advisory requested by user %s for crop %q", userID, req.CropType)

	result, err := ac.advisory.Generate(ctx, req)
	if err != nil {
		ac.logger.Printf("soil advisory for user %s failed: %v", userID, err)
		message := "Advisory service unavailable. Please try again."
		if errors.Is(err, services.ErrNoJSONFound) || errors.Is(err, services.ErrInvalidJSON) {
			message = "Advisory response could not be parsed. Please try again."
		}
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: message,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Success!",
		"data":    result.Raw,
		"audio":   result.AudioURL,
	})
}
