// utils/otp.go
package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrTooManyOTPAttempts is returned once an email exceeds the hourly
// verification attempt budget.
var ErrTooManyOTPAttempts = errors.New("too many OTP attempts")

// GenerateOTP returns a 6-digit numeric one-time code from crypto/rand.
func GenerateOTP() (string, error) {
	const digits = "0123456789"
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

// ValidateOTPAttempts counts verification attempts per email in Redis.
// Limit is 5 attempts per hour. A nil client disables the check.
func ValidateOTPAttempts(ctx context.Context, email string, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}

	key := "otp_attempts:" + email
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first attempt
	if attempts == 1 {
		rdb.Expire(ctx, key, 1*time.Hour)
	}

	if attempts > 5 {
		return ErrTooManyOTPAttempts
	}

	return nil
}

// ClearOTPAttempts resets the attempt counter after a successful verification.
func ClearOTPAttempts(ctx context.Context, email string, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	rdb.Del(ctx, "otp_attempts:"+email)
}
