package mongodb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

// CredentialsCollection stores one document per completed authorization.
const CredentialsCollection = "app_credentials"

var (
	clientInstance *mongo.Client
	clientOnce     sync.Once
	dbInstance     *mongo.Database
	dbOnce         sync.Once
)

// InitMongoDB connects the process-wide MongoDB client and selects the
// database. Call once at startup before any repository is constructed.
func InitMongoDB(ctx context.Context, uri, dbName string) error {
	var initErr error

	clientOnce.Do(func() {
		opts := options.Client().
			ApplyURI(uri).
			SetConnectTimeout(10 * time.Second).
			SetMonitor(otelmongo.NewMonitor())

		client, err := mongo.Connect(opts)
		if err != nil {
			initErr = err
			return
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		clientInstance = client
		log.Info().Msg("mongodb client initialized")
	})
	if initErr != nil {
		return initErr
	}
	if clientInstance == nil {
		return errors.New("mongodb client not initialized")
	}

	dbOnce.Do(func() {
		dbInstance = clientInstance.Database(dbName)
	})
	return nil
}

// GetDB returns the selected database. InitMongoDB must have succeeded first.
func GetDB() *mongo.Database {
	if dbInstance == nil {
		log.Fatal().Msg("mongodb database not initialized, call InitMongoDB first")
	}
	return dbInstance
}

// Ping verifies connectivity; used by health checks.
func Ping(ctx context.Context) error {
	if clientInstance == nil {
		return errors.New("mongodb client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return clientInstance.Ping(pingCtx, readpref.Primary())
}

// CloseMongoDB disconnects the client on shutdown.
func CloseMongoDB(ctx context.Context) {
	if clientInstance == nil {
		return
	}
	if err := clientInstance.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("error closing mongodb connection")
	}
}
