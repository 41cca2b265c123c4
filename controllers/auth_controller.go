package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmhelper/farmhelper_backend/middleware"
	"github.com/farmhelper/farmhelper_backend/models"
	"github.com/farmhelper/farmhelper_backend/repositories"
	"github.com/farmhelper/farmhelper_backend/services"
	"github.com/farmhelper/farmhelper_backend/utils"
)

// OTPValidity is how long an emailed code can be redeemed.
const OTPValidity = 15 * time.Minute

// AuthController contains registration and login logic
type AuthController struct {
	users         repositories.UserStore
	registrations repositories.RegistrationStore
	mailer        services.Mailer
	logger        *log.Logger
	loginAttempts map[string]struct {
		count       int
		lastAttempt time.Time
	}
	loginAttemptsMu sync.RWMutex
}

// NewAuthController creates a new auth controller
func NewAuthController(users repositories.UserStore, registrations repositories.RegistrationStore, mailer services.Mailer) *AuthController {
	ac := &AuthController{
		users:         users,
		registrations: registrations,
		mailer:        mailer,
		logger:        log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
		loginAttempts: make(map[string]struct {
			count       int
			lastAttempt time.Time
		}),
	}

	go ac.startLoginAttemptCleanupRoutine()

	return ac
}

// Register handles a new registration: identity conflict checks, password
// hashing, pending record upsert, OTP issue and email dispatch. The account
// only becomes real once the OTP is verified.
func (ac *AuthController) Register(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "All fields are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	username, err := utils.SanitizeUsername(req.Username)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}
	req.Username = username

	// Email conflict is checked before username conflict; first match wins
	existing, err := ac.users.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		ac.logger.Printf("register: identity lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}
	if existing != nil {
		message := "Username already exists!"
		if existing.Email == req.Email {
			message = "Email already exists!"
		}
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: message,
		})
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		ac.logger.Printf("register: password hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	if err := ac.registrations.UpsertPending(ctx, req.Username, req.Email, hashedPassword); err != nil {
		ac.logger.Printf("register: pending upsert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		ac.logger.Printf("register: OTP generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	if err := ac.registrations.CreateOTP(ctx, req.Email, otp, time.Now().Add(OTPValidity)); err != nil {
		ac.logger.Printf("register: OTP store failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	// Mail failure is fatal for this request; the pending record and OTP stay
	// behind and a re-register refreshes both.
	if err := ac.mailer.SendOTPEmail(req.Email, otp); err != nil {
		ac.logger.Printf("register: OTP email to %s failed: %v", req.Email, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to send verification email. Please try again.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "OTP sent to email. Verify within 15 minutes!",
		Data:    echo.Map{"email": req.Email},
	})
}

// Login checks credentials and issues a signed token valid for one day.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Username and password are required",
		})
	}

	ac.loginAttemptsMu.RLock()
	attempts, exists := ac.loginAttempts[req.Username]
	ac.loginAttemptsMu.RUnlock()

	if exists && attempts.count >= 5 && time.Since(attempts.lastAttempt) < 30*time.Minute {
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Too many failed login attempts. Please try again later.",
		})
	}

	user, err := ac.users.FindByUsername(ctx, req.Username)
	if err != nil {
		ac.logger.Printf("login: user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	// Unknown username and wrong password produce the same answer
	if user == nil {
		ac.recordFailedLogin(req.Username)
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		ac.recordFailedLogin(req.Username)
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
	}

	ac.loginAttemptsMu.Lock()
	delete(ac.loginAttempts, req.Username)
	ac.loginAttemptsMu.Unlock()

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.Username)
	if err != nil {
		ac.logger.Printf("login: token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Something went wrong",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (ac *AuthController) recordFailedLogin(username string) {
	ac.loginAttemptsMu.Lock()
	defer ac.loginAttemptsMu.Unlock()

	attempts := ac.loginAttempts[username]
	attempts.count++
	attempts.lastAttempt = time.Now()
	ac.loginAttempts[username] = attempts
}

func (ac *AuthController) startLoginAttemptCleanupRoutine() {
	for {
		time.Sleep(30 * time.Minute)
		now := time.Now()
		ac.loginAttemptsMu.Lock()
		for username, attempts := range ac.loginAttempts {
			if now.Sub(attempts.lastAttempt) > 30*time.Minute {
				delete(ac.loginAttempts, username)
			}
		}
		ac.loginAttemptsMu.Unlock()
	}
}
