package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/farmhelper/farmhelper_backend/models"
	"github.com/farmhelper/farmhelper_backend/repositories"
	"github.com/farmhelper/farmhelper_backend/utils"
)

// OTPController handles OTP verification and promotion of pending
// registrations into confirmed users.
type OTPController struct {
	registrations repositories.RegistrationStore
	redis         *redis.Client
	logger        *log.Logger
}

// NewOTPController creates a new OTP controller. A nil redis client disables
// attempt limiting.
func NewOTPController(registrations repositories.RegistrationStore, rdb *redis.Client) *OTPController {
	return &OTPController{
		registrations: registrations,
		redis:         rdb,
		logger:        log.New(os.Stdout, "[OTP] ", log.LstdFlags),
	}
}

// VerifyOTP checks the most recent code issued for the email and, on a match,
// promotes the pending registration in one atomic transition. A consumed code
// cannot be replayed: promotion deletes every OTP for the email, so a second
// attempt fails the not-found check.
func (oc *OTPController) VerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and OTP are required!",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}

	if err := utils.ValidateOTPAttempts(ctx, email, oc.redis); err != nil {
		if errors.Is(err, utils.ErrTooManyOTPAttempts) {
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many OTP attempts. Please try again later.",
			})
		}
		oc.logger.Printf("verify: attempt counting failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong!",
		})
	}

	otpRecord, err := oc.registrations.FindLatestOTPByEmail(ctx, email)
	if err != nil {
		oc.logger.Printf("verify: OTP lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong!",
		})
	}
	if otpRecord == nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No OTP request found!",
		})
	}

	// Expiry is checked before the code value: a correct but stale code fails
	if time.Now().After(otpRecord.ExpiresAt) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "OTP expired!",
		})
	}

	if req.OTP != otpRecord.OTP {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid OTP!",
		})
	}

	pending, err := oc.registrations.FindPendingByEmail(ctx, email)
	if err != nil {
		oc.logger.Printf("verify: pending lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong!",
		})
	}
	if pending == nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Pending registration not found!",
		})
	}

	if _, err := oc.registrations.PromotePending(ctx, pending); err != nil {
		oc.logger.Printf("verify: promotion failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong!",
		})
	}

	utils.ClearOTPAttempts(ctx, email, oc.redis)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created successfully!",
	})
}
