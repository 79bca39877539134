package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/store"
)

// Resource is a record that can validate itself before it is stored.
type Resource interface {
	store.Record
	Validate() error
}

// CRUDService runs the audited create/read/update/delete use cases shared by
// every resource. Access checks happen before these methods are called.
type CRUDService[T Resource] struct {
	store    *store.Store
	repo     *store.Repository[T]
	notFound string
}

// NewCRUDService builds the service for T. notFound is the message returned
// when a lookup misses, e.g. "Bin not found".
func NewCRUDService[T Resource](s *store.Store, notFound string) *CRUDService[T] {
	if notFound == "" {
		notFound = msgNotFound
	}
	return &CRUDService[T]{store: s, repo: store.NewRepository[T](s), notFound: notFound}
}

func (s *CRUDService[T]) Get(ctx context.Context, key store.Key) (T, error) {
	rec, err := s.repo.Get(ctx, s.store.DB(), key)
	return rec, translate(err, s.notFound)
}

func (s *CRUDService[T]) List(ctx context.Context) ([]T, error) {
	recs, err := s.repo.List(ctx, s.store.DB())
	return recs, translate(err, s.notFound)
}

func (s *CRUDService[T]) ListBy(ctx context.Context, key store.Key) ([]T, error) {
	recs, err := s.repo.ListBy(ctx, s.store.DB(), key)
	return recs, translate(err, s.notFound)
}

func (s *CRUDService[T]) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx, s.store.DB())
	return n, translate(err, s.notFound)
}

// Create validates rec and stores it on behalf of actor.
func (s *CRUDService[T]) Create(ctx context.Context, actor *int64, rec T) (T, error) {
	var created T
	if err := rec.Validate(); err != nil {
		return created, translate(err, s.notFound)
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		created, err = s.repo.Create(ctx, tx, actor, rec)
		return err
	})
	return created, translate(err, s.notFound)
}

// Update applies a typed patch to the record matching key.
func (s *CRUDService[T]) Update(ctx context.Context, actor *int64, key store.Key, apply func(*T) error) (T, error) {
	var updated T
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		updated, err = s.repo.Update(ctx, tx, actor, key, apply)
		return err
	})
	return updated, translate(err, s.notFound)
}

// Delete removes the record matching key and returns its last state.
func (s *CRUDService[T]) Delete(ctx context.Context, actor *int64, key store.Key) (T, error) {
	var deleted T
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		deleted, err = s.repo.Delete(ctx, tx, actor, key)
		return err
	})
	return deleted, translate(err, s.notFound)
}
