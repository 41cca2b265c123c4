package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailOTP represents a one-time code bound to an email address. Several codes
// may coexist for one email; verification always checks the newest. The otps
// collection carries a TTL index on expiresAt so the store drops stale codes.
type EmailOTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	OTP       string             `bson:"otp"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}
