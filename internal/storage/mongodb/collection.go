package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// collection stores documents of one kind in a MongoDB collection.
type collection[T models.Document] struct {
	coll   *mongo.Collection
	newDoc func() T
}

func newCollection[T models.Document](coll *mongo.Collection, newDoc func() T) *collection[T] {
	return &collection[T]{coll: coll, newDoc: newDoc}
}

// Insert inserts a new document.
func (c *collection[T]) Insert(ctx context.Context, doc T) error {
	storage.Stamp(doc, time.Now().UTC())
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", c.coll.Name(), err)
	}
	return nil
}

// Get finds one of the user's documents by ID.
func (c *collection[T]) Get(ctx context.Context, userID, id string) (T, error) {
	doc := c.newDoc()
	err := c.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", c.coll.Name(), id, storage.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to find in %s: %w", c.coll.Name(), err)
	}
	return doc, nil
}

// List returns the user's documents matching q.
func (c *collection[T]) List(ctx context.Context, userID string, q storage.Query) ([]T, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	filter["userId"] = userID
	return c.find(ctx, filter, q)
}

// Scan returns documents of every user matching q.
func (c *collection[T]) Scan(ctx context.Context, q storage.Query) ([]T, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	return c.find(ctx, filter, q)
}

// Update replaces a document matched by ID and owner.
func (c *collection[T]) Update(ctx context.Context, doc T) error {
	meta := doc.Meta()
	meta.UpdatedAt = time.Now().UTC()

	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": meta.ID, "userId": meta.UserID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.coll.Name(), meta.ID, storage.ErrNotFound)
	}
	return nil
}

// Delete removes one of the user's documents.
func (c *collection[T]) Delete(ctx context.Context, userID, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.coll.Name(), id, storage.ErrNotFound)
	}
	return nil
}

// DeleteWhere removes the user's documents matching q.Where.
func (c *collection[T]) DeleteWhere(ctx context.Context, userID string, q storage.Query) (int64, error) {
	filter, err := buildFilter(storage.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}
	filter["userId"] = userID
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *collection[T]) find(ctx context.Context, filter bson.M, q storage.Query) ([]T, error) {
	sortField := "createdAt"
	if q.SortBy != "" {
		sortField = q.SortBy
	}
	direction := 1
	if q.Desc {
		direction = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: direction}})
	if q.Limit > 0 {
		opts = opts.SetLimit(int64(q.Limit))
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []T
	for cursor.Next(ctx) {
		doc := c.newDoc()
		if err := cursor.Decode(doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", c.coll.Name(), err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.coll.Name(), err)
	}
	return docs, nil
}

// buildFilter translates a query into a bson filter.
func buildFilter(q storage.Query) (bson.M, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filter := bson.M{}
	for field, value := range q.Where {
		filter[field] = value
	}

	if q.DateField != "" && (!q.From.IsZero() || !q.To.IsZero()) {
		rng := bson.M{}
		if !q.From.IsZero() {
			rng["$gte"] = q.From
		}
		if !q.To.IsZero() {
			rng["$lt"] = q.To
		}
		filter[q.DateField] = rng
	}
	return filter, nil
}
