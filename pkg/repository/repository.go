package repository

import (
	"context"
	"errors"

	"idauth-entitlement/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is the generic data access contract shared by the record stores.
// Lookups return (nil, nil) when no row matches the query so callers can
// distinguish "not found" from a real storage failure.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, record *T) error
	Save(ctx context.Context, record *T) error
	Update(ctx context.Context, id string, values any) error
	BatchCreate(ctx context.Context, records []*T) error
	BatchUpdate(ctx context.Context, records []*T) error
	Count(ctx context.Context, query *T) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore returns a gorm backed Repository for the given model type.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	tx := s.db.WithContext(ctx).Where(query)
	for _, opt := range opts {
		tx = opt(tx)
	}

	var records []*T
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	tx := s.db.WithContext(ctx).Where(query)
	for _, opt := range opts {
		tx = opt(tx)
	}

	var record T
	if err := tx.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// Save upserts the record by primary key.
func (s *store[T]) Save(ctx context.Context, record *T) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *store[T]) Update(ctx context.Context, id string, values any) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}

	var model T
	res := s.db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *store[T]) BatchCreate(ctx context.Context, records []*T) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(records).Error
}

func (s *store[T]) BatchUpdate(ctx context.Context, records []*T) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	for _, record := range records {
		if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	if s == nil || s.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var model T
	var count int64
	if err := s.db.WithContext(ctx).Model(&model).Where(query).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
