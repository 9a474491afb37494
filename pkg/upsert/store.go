package upsert

import (
	"context"

	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

// Store is the persistence the engine needs. FindBySourceID returns
// database.ErrNotFound for a missing key; Insert returns
// database.ErrKeyConflict when the key already exists.
type Store interface {
	FindBySourceID(ctx context.Context, sourceID string) (*models.Event, error)
	Insert(ctx context.Context, ev *models.Event) (*models.Event, error)
	Update(ctx context.Context, ev *models.Event) (*models.Event, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindBySourceID(ctx context.Context, sourceID string) (*models.Event, error) {
	var ev models.Event
	err := s.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&ev).Error
	if err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (s *GormStore) Insert(ctx context.Context, ev *models.Event) (*models.Event, error) {
	row := *ev
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsKeyConflictErr(err) {
			return nil, errors.Wrap(database.ErrKeyConflict, ev.SourceID)
		}
		return nil, err
	}
	return &row, nil
}

// Update writes every mutable column of ev, zero values included.
func (s *GormStore) Update(ctx context.Context, ev *models.Event) (*models.Event, error) {
	if ev.ID == 0 {
		return nil, errors.New("update without id")
	}
	row := *ev
	res := s.db.WithContext(ctx).Model(&row).
		Select("*").
		Omit("id", "source_id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, database.ErrNotFound
	}
	return &row, nil
}
