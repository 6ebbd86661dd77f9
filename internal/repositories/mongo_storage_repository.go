package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoStorageEntry is one stored value (MongoDB)
type mongoStorageEntry struct {
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorageRepository implements StorageRepository for MongoDB
type MongoStorageRepository struct {
	collection *mongo.Collection
}

// NewMongoStorageRepository creates a new MongoStorageRepository
func NewMongoStorageRepository(db *mongo.Database) *MongoStorageRepository {
	return &MongoStorageRepository{collection: db.Collection("client_storage")}
}

// EnsureIndexes creates the unique namespace/key index.
func (r *MongoStorageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "namespace", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Get returns the value stored under namespace/key.
func (r *MongoStorageRepository) Get(ctx context.Context, namespace, key string) (string, error) {
	var entry mongoStorageEntry
	err := r.collection.FindOne(ctx, bson.M{"namespace": namespace, "key": key}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

// Set upserts the value stored under namespace/key.
func (r *MongoStorageRepository) Set(ctx context.Context, namespace, key, value string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"namespace": namespace, "key": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Delete removes keys from namespace.
func (r *MongoStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"namespace": namespace, "key": bson.M{"$in": keys}})
	return err
}
