// Package repository wraps gorm with the lookups the command handlers share.
package repository

import (
	"context"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository gives typed access to one table. name is used in error messages.
type Repository[T any] struct {
	db   *gorm.DB
	name string
}

func New[T any](db *gorm.DB, name string) *Repository[T] {
	return &Repository[T]{db: db, name: name}
}

// Get loads the entity by primary key with the given associations preloaded.
// A missing row is reported as NOT_FOUND.
func (r *Repository[T]) Get(ctx context.Context, id uint, preloads ...string) (*T, error) {
	var entity T
	query := r.db.WithContext(ctx)
	for _, p := range preloads {
		query = query.Preload(p)
	}
	if err := query.First(&entity, id).Error; err != nil {
		return nil, apperrors.Wrap(r.name, err)
	}
	return &entity, nil
}

// FindBy loads the first entity matching the condition.
func (r *Repository[T]) FindBy(ctx context.Context, query string, args ...any) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).Where(query, args...).First(&entity).Error; err != nil {
		return nil, apperrors.Wrap(r.name, err)
	}
	return &entity, nil
}

// Exists reports whether any row matches the condition.
func (r *Repository[T]) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(query, args...).Limit(1).Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(r.name, err)
	}
	return count > 0, nil
}

// Create inserts the entity without touching its associations.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return apperrors.Wrap(r.name, r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error)
}

// Save updates all columns of the entity without touching its associations.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	return apperrors.Wrap(r.name, r.db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error)
}

func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	return apperrors.Wrap(r.name, r.db.WithContext(ctx).Delete(entity).Error)
}

// DeleteWhere removes every row matching the condition.
func (r *Repository[T]) DeleteWhere(ctx context.Context, query string, args ...any) error {
	return apperrors.Wrap(r.name, r.db.WithContext(ctx).Where(query, args...).Delete(new(T)).Error)
}
