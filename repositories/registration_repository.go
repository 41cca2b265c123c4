package repositories

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmhelper/farmhelper_backend/config"
	"github.com/farmhelper/farmhelper_backend/models"
)

// RegistrationStore covers the pending-registration and OTP lifecycle.
// Lookups return (nil, nil) when nothing matches.
type RegistrationStore interface {
	UpsertPending(ctx context.Context, username, email, passwordHash string) error
	FindPendingByEmail(ctx context.Context, email string) (*models.PendingUser, error)
	CreateOTP(ctx context.Context, email, otp string, expiresAt time.Time) error
	FindLatestOTPByEmail(ctx context.Context, email string) (*models.EmailOTP, error)
	PromotePending(ctx context.Context, pending *models.PendingUser) (*models.User, error)
}

type RegistrationRepository struct {
	client  *mongo.Client
	users   *mongo.Collection
	pending *mongo.Collection
	otps    *mongo.Collection
}

func NewRegistrationRepository(client *mongo.Client) *RegistrationRepository {
	return &RegistrationRepository{
		client:  client,
		users:   config.GetCollection(client, "users"),
		pending: config.GetCollection(client, "pendingUsers"),
		otps:    config.GetCollection(client, "otps"),
	}
}

// UpsertPending creates the pending registration for the email, or refreshes
// the password hash and timestamp when one already exists.
func (r *RegistrationRepository) UpsertPending(ctx context.Context, username, email, passwordHash string) error {
	filter := bson.M{"email": email}
	update := bson.M{
		"$set": bson.M{
			"username":  username,
			"email":     email,
			"password":  passwordHash,
			"createdAt": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.pending.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *RegistrationRepository) FindPendingByEmail(ctx context.Context, email string) (*models.PendingUser, error) {
	var pending models.PendingUser
	err := r.pending.FindOne(ctx, bson.M{"email": email}).Decode(&pending)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *RegistrationRepository) CreateOTP(ctx context.Context, email, otp string, expiresAt time.Time) error {
	_, err := r.otps.InsertOne(ctx, models.EmailOTP{
		Email:     email,
		OTP:       otp,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return err
}

// FindLatestOTPByEmail returns the most recently created code for the email.
func (r *RegistrationRepository) FindLatestOTPByEmail(ctx context.Context, email string) (*models.EmailOTP, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var otp models.EmailOTP
	err := r.otps.FindOne(ctx, bson.M{"email": email}, opts).Decode(&otp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// PromotePending turns a pending registration into a confirmed user and
// removes the pending record and every OTP issued for the email. The three
// writes run in one transaction so a crash cannot leave a half-promoted
// state; standalone deployments without transaction support fall back to
// sequential writes.
func (r *RegistrationRepository) PromotePending(ctx context.Context, pending *models.PendingUser) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		Username:  pending.Username,
		Email:     pending.Email,
		Password:  pending.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	session, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.promote(sc, user, pending.Email)
	})
	if err != nil {
		if !transactionsUnsupported(err) {
			return nil, err
		}
		log.Printf("Transactions unsupported by deployment, promoting sequentially: %v", err)
		insertedID, err := r.promote(ctx, user, pending.Email)
		if err != nil {
			return nil, err
		}
		user.ID = insertedID
		return user, nil
	}

	user.ID = result.(primitive.ObjectID)
	return user, nil
}

func (r *RegistrationRepository) promote(ctx context.Context, user *models.User, email string) (primitive.ObjectID, error) {
	res, err := r.users.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := r.pending.DeleteOne(ctx, bson.M{"email": email}); err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := r.otps.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func transactionsUnsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed") ||
		strings.Contains(msg, "transactions are not supported")
}
