package snapshot

import (
	"context"
	"errors"

	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type snapshotRow struct {
	ProfileID   string `gorm:"column:profile_id;primaryKey"`
	TotalItems  int    `gorm:"column:total_items"`
	LastUpdated int64  `gorm:"column:last_updated"`
}

func (snapshotRow) TableName() string { return "cart_snapshots" }

// SQLiteStore is the durable per-profile snapshot store.
type SQLiteStore struct {
	db        *gorm.DB
	profileID string
}

// NewSQLiteStore opens (or creates) the snapshot database at path.
func NewSQLiteStore(path, profileID string) (*SQLiteStore, error) {
	if profileID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "open snapshot db")
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "migrate snapshot table")
	}
	return &SQLiteStore{db: db, profileID: profileID}, nil
}

// Load returns the stored snapshot for the profile, if any.
func (s *SQLiteStore) Load(ctx context.Context) (types.LocalCartSnapshot, bool, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).First(&row, "profile_id = ?", s.profileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.LocalCartSnapshot{}, false, nil
		}
		return types.LocalCartSnapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load snapshot")
	}
	return types.LocalCartSnapshot{TotalItems: row.TotalItems, LastUpdated: row.LastUpdated}, true, nil
}

// Save upserts the snapshot, keeping timestamps monotonically non-decreasing.
func (s *SQLiteStore) Save(ctx context.Context, snap types.LocalCartSnapshot) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row snapshotRow
		err := tx.First(&row, "profile_id = ?", s.profileID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&snapshotRow{
				ProfileID:   s.profileID,
				TotalItems:  snap.TotalItems,
				LastUpdated: snap.LastUpdated,
			}).Error
		case err != nil:
			return err
		}
		if !snap.Supersedes(types.LocalCartSnapshot{LastUpdated: row.LastUpdated}) {
			return nil
		}
		row.TotalItems = snap.TotalItems
		row.LastUpdated = snap.LastUpdated
		return tx.Save(&row).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "save snapshot")
	}
	return nil
}

// Clear removes the profile's snapshot row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&snapshotRow{}, "profile_id = ?", s.profileID).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear snapshot")
	}
	return nil
}
