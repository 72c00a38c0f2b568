package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		collection: db.Collection("kv"),
	}
}

func (m *MongoStorage) Get(ctx context.Context, key string) (string, error) {
	var doc kvDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return doc.Value, nil
}

func (m *MongoStorage) Set(ctx context.Context, key, value string) error {
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{
		"value":      value,
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}
