package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/farmhelper/farmhelper_backend/controllers"
	"github.com/farmhelper/farmhelper_backend/middleware"
)

// RegisterAIRoutes sets up the token-guarded advisory routes.
func RegisterAIRoutes(e *echo.Echo, advisoryController *controllers.AdvisoryController) {
	aiGroup := e.Group("/api/ai")
	aiGroup.Use(middleware.JWTMiddleware())

	aiGroup.POST("/soil", advisoryController.Soil)
}
