package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"streamvault/internal/config"
)

type Service interface {
	Health() map[string]string
	GetDatabase() *mongo.Database
	Close() error
}

type service struct {
	client *mongo.Client
	dbName string
}

// New connects to MongoDB using the configured URI and verifies the
// connection with a ping before returning.
func New(cfg config.DatabaseConfig) (Service, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Connected to MongoDB at %s", cfg.Host)

	return &service{
		client: client,
		dbName: cfg.Name,
	}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		log.Printf("MongoDB health check failed: %v", err)
		return map[string]string{
			"message": "Database is unhealthy",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"message": "Database is healthy",
		"status":  "connected",
	}
}

func (s *service) GetDatabase() *mongo.Database {
	return s.client.Database(s.dbName)
}

func (s *service) Close() error {
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.client.Disconnect(ctx)
	}
	return nil
}
