// Package items is the record service used by the HTTP boundary.
package items

import (
	"context"
	"fmt"

	"github.com/ValerySidorin/stockpile/pkg/future"
	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/store"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("record not found")

type notFoundError struct {
	id int64
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("there is no record with the id %d", e.id)
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BatchProcessor runs a batch over all stored records.
type BatchProcessor interface {
	ProcessAll(ctx context.Context) *future.Future[[]*record.Record]
}

type Service struct {
	store store.Store
	proc  BatchProcessor
}

func NewService(s store.Store, proc BatchProcessor) *Service {
	return &Service{
		store: s,
		proc:  proc,
	}
}

func (s *Service) List(ctx context.Context) ([]*record.Record, error) {
	recs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	return recs, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*record.Record, error) {
	rec, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get record %d", id)
	}
	if !found {
		return nil, &notFoundError{id: id}
	}
	return rec, nil
}

// Create stores rec as a new record. A client supplied id is ignored.
func (s *Service) Create(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	rec = rec.Clone()
	rec.ID = 0
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return nil, errors.Wrap(err, "create record")
	}
	return saved, nil
}

func (s *Service) Update(ctx context.Context, id int64, upd *record.Record) (*record.Record, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Name = upd.Name
	rec.Description = upd.Description
	rec.Status = upd.Status
	rec.Email = upd.Email

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "update record %d", id)
	}
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return errors.Wrapf(err, "delete record %d", id)
	}
	return nil
}

func (s *Service) ProcessAll(ctx context.Context) *future.Future[[]*record.Record] {
	return s.proc.ProcessAll(ctx)
}
