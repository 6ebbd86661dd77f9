package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the client storage connection. Exactly one of SQL and Mongo is
// set.
type DB struct {
	SQL     *gorm.DB
	Mongo   *mongo.Client
	Storage repositories.StorageRepository
	log     logrus.FieldLogger
}

// InitDB opens the client storage backend: MongoDB when MONGO_URI is set,
// else PostgreSQL when POSTGRES_URL is set, else a SQLite file at
// SESSION_DB_PATH.
func InitDB(cfg *Config, log logrus.FieldLogger) (*DB, error) {
	switch {
	case cfg.MongoURI != "":
		client, err := initMongo(cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		repo := repositories.NewMongoStorageRepository(client.Database(cfg.MongoDatabase))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create storage indexes: %w", err)
		}
		log.Info("Successfully connected to MongoDB!")
		return &DB{Mongo: client, Storage: repo, log: log}, nil

	case cfg.PostgresUrl != "":
		db, err := openSQL(postgres.Open(cfg.PostgresUrl))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info("Successfully connected to PostgreSQL!")
		return newSQLDB(db, log)

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SessionDBPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		db, err := openSQL(sqlite.Open(cfg.SessionDBPath))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite session store: %w", err)
		}
		log.WithField("path", cfg.SessionDBPath).Info("Using SQLite session store")
		return newSQLDB(db, log)
	}
}

func newSQLDB(db *gorm.DB, log logrus.FieldLogger) (*DB, error) {
	repo := repositories.NewSQLStorageRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}
	return &DB{SQL: db, Storage: repo, log: log}, nil
}

// openSQL opens a GORM connection and pings it.
func openSQL(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// CloseDB closes the storage connection
func (db *DB) CloseDB() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			db.log.WithError(err).Error("Error getting SQL DB from GORM")
		} else if err := sqlDB.Close(); err != nil {
			db.log.WithError(err).Error("Error closing SQL connection")
		} else {
			db.log.Info("SQL connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.WithError(err).Error("Error closing MongoDB connection")
		} else {
			db.log.Info("MongoDB connection closed.")
		}
	}
}
