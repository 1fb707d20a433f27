package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type slotRecord struct {
	Key       string    `gorm:"column:slot_key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (slotRecord) TableName() string { return "cart_slots" }

// SQLSlot persists cart values in the cart_slots table.
type SQLSlot struct {
	db *gorm.DB
}

// NewSQLSlot binds the slot to the provided GORM handle.
func NewSQLSlot(db *gorm.DB) *SQLSlot {
	return &SQLSlot{db: db}
}

func (s *SQLSlot) Get(ctx context.Context, key string) (string, error) {
	var record slotRecord
	err := s.db.WithContext(ctx).
		Where("slot_key = ?", key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("load cart slot: %w", err)
	}
	return record.Value, nil
}

// Set upserts the value; the previous value is overwritten.
func (s *SQLSlot) Set(ctx context.Context, key, value string) error {
	record := slotRecord{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("save cart slot: %w", err)
	}
	return nil
}
