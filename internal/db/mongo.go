package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Connect dials MongoDB and checks the primary is reachable before handing
// back the gateway database.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("estatehub-gateway").
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("database", dbName))
	return client.Database(dbName), nil
}

// Disconnect closes the client behind database.
func Disconnect(database *mongo.Database, logger *zap.Logger) error {
	if database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := database.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	logger.Info("mongodb connection closed")
	return nil
}

// indexes lists what the services query by. Location search needs the text
// index; config lookups need key and route uniqueness.
var indexes = map[string][]mongo.IndexModel{
	"locations": {
		{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "alt_names", Value: "text"}}},
		{Keys: bson.D{{Key: "country_code", Value: 1}, {Key: "population", Value: -1}}},
	},
	"configuration": {
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"api_endpoints_config": {
		{Keys: bson.D{{Key: "method", Value: 1}, {Key: "path", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"client_snapshots": {
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	},
}

// EnsureIndexes creates any missing index. Existing identical indexes are
// left alone by the server.
func EnsureIndexes(ctx context.Context, database *mongo.Database, logger *zap.Logger) error {
	for collection, models := range indexes {
		names, err := database.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		logger.Debug("indexes ensured", zap.String("collection", collection), zap.Strings("indexes", names))
	}
	return nil
}
