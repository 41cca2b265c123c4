package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/farmhelper/farmhelper_backend/config"
	"github.com/farmhelper/farmhelper_backend/controllers"
	"github.com/farmhelper/farmhelper_backend/middleware"
	"github.com/farmhelper/farmhelper_backend/repositories"
	"github.com/farmhelper/farmhelper_backend/routes"
	"github.com/farmhelper/farmhelper_backend/services"
)

const audioDir = "public/audio"

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (OTP attempt limiting; optional)
	redisClient := config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "FarmHelper Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		redisStatus := "disabled"
		if config.GetRedisClient() != nil {
			redisStatus = "connected"
		}
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
			"redis":    redisStatus,
		})
	})

	// Initialize repositories
	userRepo := repositories.NewUserRepository(client)
	registrationRepo := repositories.NewRegistrationRepository(client)

	// Initialize services
	mailService := services.NewMailService()
	geminiService, err := services.NewGeminiService(context.Background())
	if err != nil {
		log.Fatal("Gemini client error: ", err)
	}
	elevenLabsService := services.NewElevenLabsService()
	advisoryService := services.NewAdvisoryService(
		geminiService,
		elevenLabsService,
		audioDir,
		audioBaseURL(),
	)

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, registrationRepo, mailService)
	otpController := controllers.NewOTPController(registrationRepo, redisClient)
	advisoryController := controllers.NewAdvisoryController(advisoryService)

	// Register routes
	routes.RegisterUserRoutes(e, authController, otpController)
	routes.RegisterAIRoutes(e, advisoryController)

	// Ensure the audio artifact directory exists and serve it
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		log.Fatal("Failed to create audio directory: ", err)
	}
	e.Static("/audio", audioDir)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

// audioBaseURL is the public prefix clients use to fetch generated narration.
func audioBaseURL() string {
	if base := os.Getenv("AUDIO_BASE_URL"); base != "" {
		return base
	}
	return "/audio"
}
