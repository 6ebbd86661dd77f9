package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a storage key holds no value.
var ErrNotFound = errors.New("storage key not found")

// StorageRepository is the client's persistent key/value storage. Keys are
// grouped by namespace: one namespace per client session (the CLI's local
// profile, or a browser session on the page view server).
type StorageRepository interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace string, keys ...string) error
}

// StorageEntry is one stored value (SQL)
type StorageEntry struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"column:storage_key;primaryKey;size:64"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (StorageEntry) TableName() string { return "client_storage" }

// SQLStorageRepository implements StorageRepository with GORM (SQLite or PostgreSQL)
type SQLStorageRepository struct {
	db *gorm.DB
}

// NewSQLStorageRepository creates a new SQLStorageRepository
func NewSQLStorageRepository(db *gorm.DB) *SQLStorageRepository {
	return &SQLStorageRepository{db: db}
}

// Migrate creates the storage table.
func (r *SQLStorageRepository) Migrate() error {
	return r.db.AutoMigrate(&StorageEntry{})
}

// Get returns the value stored under namespace/key.
func (r *SQLStorageRepository) Get(ctx context.Context, namespace, key string) (string, error) {
	var entry StorageEntry
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND storage_key = ?", namespace, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

// Set upserts the value stored under namespace/key.
func (r *SQLStorageRepository) Set(ctx context.Context, namespace, key, value string) error {
	entry := StorageEntry{Namespace: namespace, Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Delete removes keys from namespace. Missing keys are not an error.
func (r *SQLStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("namespace = ? AND storage_key IN ?", namespace, keys).
		Delete(&StorageEntry{}).Error
}
