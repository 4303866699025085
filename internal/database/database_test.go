package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"streamvault/internal/config"
)

var testConfig config.DatabaseConfig

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Printf("skipping database tests: could not start mongodb container: %v", err)
		os.Exit(0)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("mongodb container connection string: %v", err)
	}

	testConfig = config.DatabaseConfig{
		Host: "localhost",
		Name: "streamvault_database_test",
		URI:  uri,
	}

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("terminating mongodb container: %v", err)
	}
	os.Exit(code)
}

func TestNewConnectsAndPings(t *testing.T) {
	srv, err := New(testConfig)
	require.NoError(t, err)
	defer srv.Close()

	stats := srv.Health()
	assert.Equal(t, "Database is healthy", stats["message"])
	assert.Equal(t, "connected", stats["status"])
}

func TestNewRejectsUnreachableHost(t *testing.T) {
	bad := testConfig
	bad.URI = "mongodb://127.0.0.1:1/streamvault?serverSelectionTimeoutMS=500"

	_, err := New(bad)
	assert.Error(t, err)
}

func TestGetDatabaseUsesConfiguredName(t *testing.T) {
	srv, err := New(testConfig)
	require.NoError(t, err)
	defer srv.Close()

	db := srv.GetDatabase()
	require.NotNil(t, db)
	assert.Equal(t, testConfig.Name, db.Name())

	ctx := context.Background()
	collection := db.Collection("connectivity_check")

	result, err := collection.InsertOne(ctx, bson.M{"at": time.Now()})
	require.NoError(t, err)
	require.NotNil(t, result.InsertedID)

	_, err = collection.DeleteOne(ctx, bson.M{"_id": result.InsertedID})
	require.NoError(t, err)
}

func TestHealthAfterClose(t *testing.T) {
	srv, err := New(testConfig)
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	stats := srv.Health()
	assert.NotEqual(t, "Database is healthy", stats["message"])
}
