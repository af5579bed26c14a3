package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const usersCollection = "users"

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// NewMongoClient connects to MongoDB and verifies the connection.
func NewMongoClient(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// accountDocument is the stored shape of an account.
type accountDocument struct {
	ID                   string     `bson:"_id"`
	Name                 string     `bson:"name"`
	Email                string     `bson:"email"`
	Photo                string     `bson:"photo"`
	Password             string     `bson:"password"`
	Role                 string     `bson:"role"`
	Active               bool       `bson:"active"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string    `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty"`
	LoginAttempts        int        `bson:"loginAttempts"`
	IsBlocked            bool       `bson:"isBlocked"`
	UnblockTime          *time.Time `bson:"unblockTime,omitempty"`
	CreatedAt            time.Time  `bson:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt"`
}

func toDocument(a *domain.Account) accountDocument {
	return accountDocument{
		ID:                   a.ID.String(),
		Name:                 a.Name,
		Email:                a.Email,
		Photo:                a.Photo,
		Password:             a.PasswordHash,
		Role:                 string(a.Role),
		Active:               a.Active,
		PasswordChangedAt:    a.PasswordChangedAt,
		PasswordResetToken:   a.PasswordResetToken,
		PasswordResetExpires: a.PasswordResetExpires,
		LoginAttempts:        a.LoginAttempts,
		IsBlocked:            a.IsBlocked,
		UnblockTime:          a.UnblockTime,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func (d accountDocument) toAccount() (*domain.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode account id %q: %w", d.ID, err)
	}
	return &domain.Account{
		ID:                   id,
		Name:                 d.Name,
		Email:                d.Email,
		Photo:                d.Photo,
		PasswordHash:         d.Password,
		Role:                 domain.Role(d.Role),
		Active:               d.Active,
		PasswordChangedAt:    d.PasswordChangedAt,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		LoginAttempts:        d.LoginAttempts,
		IsBlocked:            d.IsBlocked,
		UnblockTime:          d.UnblockTime,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

// MongoAccountStore stores accounts as documents in the users collection.
type MongoAccountStore struct {
	coll *mongo.Collection
}

// NewMongoAccountStore creates a store over the users collection of db.
func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{coll: db.Collection(usersCollection)}
}

// Ping checks the connection to the primary.
func (s *MongoAccountStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique email index and the reset token index.
func (s *MongoAccountStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	return err
}

// activeOnly adds the default soft-delete filter to a query.
func activeOnly(filter bson.M) bson.M {
	filter["active"] = bson.M{"$ne": false}
	return filter
}

// FindByEmail retrieves an active account by email.
func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findOne(ctx, activeOnly(bson.M{"email": email}))
}

// FindByID retrieves an active account by ID.
func (s *MongoAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.findOne(ctx, activeOnly(bson.M{"_id": id.String()}))
}

// FindByResetToken retrieves the active account holding an unexpired reset token.
func (s *MongoAccountStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	return s.findOne(ctx, activeOnly(bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": now},
	}))
}

// Create inserts a new account document.
func (s *MongoAccountStore) Create(ctx context.Context, a *domain.Account) error {
	_, err := s.coll.InsertOne(ctx, toDocument(a))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	return err
}

// Save replaces the stored account document.
func (s *MongoAccountStore) Save(ctx context.Context, a *domain.Account) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": a.ID.String()}, toDocument(a))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDocument
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAccount()
}
