package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreEntry is one key/blob row backing the Store port.
type StoreEntry struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for StoreEntry.
func (StoreEntry) TableName() string {
	return "sync_store_entries"
}

// gormStore implements Store on a key-value table.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed Store.
func NewGormStore(db *gorm.DB) Store {
	db.AutoMigrate(&StoreEntry{})
	return &gormStore{db: db}
}

func (s *gormStore) Read(key string) ([]byte, error) {
	var entry StoreEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (s *gormStore) Write(key string, value []byte) error {
	entry := StoreEntry{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}
