package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/farmhelper/farmhelper_backend/controllers"
)

// RegisterUserRoutes sets up the public registration, verification and login
// routes.
func RegisterUserRoutes(e *echo.Echo, authController *controllers.AuthController, otpController *controllers.OTPController) {
	e.POST("/api/user/register", authController.Register)
	e.POST("/api/user/verify-otp", otpController.VerifyOTP)
	e.POST("/api/user/login", authController.Login)
}
