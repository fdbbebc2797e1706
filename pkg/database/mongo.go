package database

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoClient connects to MongoDB using the given BSON registry and verifies the connection.
func NewMongoClient(ctx context.Context, uri string, registry *bsoncodec.Registry) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}

	opts := options.Client().ApplyURI(uri)
	if registry != nil {
		opts.SetRegistry(registry)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Println("Successfully connected to MongoDB.")
	return client, nil
}

// CloseMongoClient disconnects the client.
func CloseMongoClient(ctx context.Context, client *mongo.Client) {
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting MongoDB client: %v", err)
			return
		}
		log.Println("MongoDB client disconnected.")
	}
}
