package utils

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttemptRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		assert.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9', "OTP must be numeric, got %q", otp)
		}
	}
}

func TestGenerateOTPVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		seen[otp] = true
	}
	// 20 draws from a million-value space colliding down to one value would
	// mean the generator is broken
	assert.Greater(t, len(seen), 1)
}

func TestValidateOTPAttemptsNilClient(t *testing.T) {
	err := ValidateOTPAttempts(context.Background(), "farmer@example.com", nil)
	assert.NoError(t, err)
}

func TestValidateOTPAttemptsLimit(t *testing.T) {
	_, rdb := newAttemptRedis(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, ValidateOTPAttempts(ctx, "farmer@example.com", rdb), "attempt %d", i+1)
	}

	err := ValidateOTPAttempts(ctx, "farmer@example.com", rdb)
	assert.ErrorIs(t, err, ErrTooManyOTPAttempts)

	// The counter is per email; another address is unaffected
	assert.NoError(t, ValidateOTPAttempts(ctx, "other@example.com", rdb))
}

func TestClearOTPAttemptsResetsCounter(t *testing.T) {
	_, rdb := newAttemptRedis(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		ValidateOTPAttempts(ctx, "farmer@example.com", rdb)
	}
	require.ErrorIs(t, ValidateOTPAttempts(ctx, "farmer@example.com", rdb), ErrTooManyOTPAttempts)

	ClearOTPAttempts(ctx, "farmer@example.com", rdb)
	assert.NoError(t, ValidateOTPAttempts(ctx, "farmer@example.com", rdb))
}

func TestValidateOTPAttemptsWindowExpires(t *testing.T) {
	mr, rdb := newAttemptRedis(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		ValidateOTPAttempts(ctx, "farmer@example.com", rdb)
	}
	require.ErrorIs(t, ValidateOTPAttempts(ctx, "farmer@example.com", rdb), ErrTooManyOTPAttempts)

	mr.FastForward(time.Hour + time.Minute)
	assert.NoError(t, ValidateOTPAttempts(ctx, "farmer@example.com", rdb))
}
