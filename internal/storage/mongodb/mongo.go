// Package mongodb provides a MongoDB-backed implementation of the storage.Store interface.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store wraps MongoDB operations. Each resource lives in its own collection.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection

	accounts      *collection[*models.Account]
	transactions  *collection[*models.Transaction]
	budgets       *collection[*models.Budget]
	goals         *collection[*models.Goal]
	bills         *collection[*models.Bill]
	investments   *collection[*models.Investment]
	notifications *collection[*models.Notification]
	conversations *collection[*models.AIConversation]
}

// New connects to MongoDB, verifies the connection and ensures indexes exist.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:        client,
		users:         db.Collection("users"),
		accounts:      newCollection(db.Collection("accounts"), func() *models.Account { return &models.Account{} }),
		transactions:  newCollection(db.Collection("transactions"), func() *models.Transaction { return &models.Transaction{} }),
		budgets:       newCollection(db.Collection("budgets"), func() *models.Budget { return &models.Budget{} }),
		goals:         newCollection(db.Collection("goals"), func() *models.Goal { return &models.Goal{} }),
		bills:         newCollection(db.Collection("bills"), func() *models.Bill { return &models.Bill{} }),
		investments:   newCollection(db.Collection("investments"), func() *models.Investment { return &models.Investment{} }),
		notifications: newCollection(db.Collection("notifications"), func() *models.Notification { return &models.Notification{} }),
		conversations: newCollection(db.Collection("ai_conversations"), func() *models.AIConversation { return &models.AIConversation{} }),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("Connected to MongoDB", "database", dbName)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	byUser := []*mongo.Collection{
		s.accounts.coll, s.budgets.coll, s.goals.coll, s.investments.coll, s.conversations.coll,
	}
	for _, coll := range byUser {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}}); err != nil {
			return fmt.Errorf("failed to create %s index: %w", coll.Name(), err)
		}
	}

	dated := map[*mongo.Collection]string{
		s.transactions.coll:  "date",
		s.bills.coll:         "dueDate",
		s.notifications.coll: "createdAt",
	}
	for coll, field := range dated {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: field, Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s index: %w", coll.Name(), err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Accounts() storage.Collection[*models.Account]             { return s.accounts }
func (s *Store) Transactions() storage.Collection[*models.Transaction]     { return s.transactions }
func (s *Store) Budgets() storage.Collection[*models.Budget]               { return s.budgets }
func (s *Store) Goals() storage.Collection[*models.Goal]                   { return s.goals }
func (s *Store) Bills() storage.Collection[*models.Bill]                   { return s.bills }
func (s *Store) Investments() storage.Collection[*models.Investment]       { return s.investments }
func (s *Store) Notifications() storage.Collection[*models.Notification]   { return s.notifications }
func (s *Store) Conversations() storage.Collection[*models.AIConversation] { return s.conversations }

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", user.Email, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail finds a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, email)
}

// GetUserByID finds a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

// UpdateUser replaces a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", user.Email, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
