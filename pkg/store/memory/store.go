package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

type Store struct {
	mtx     sync.RWMutex
	records map[int64]*record.Record
	seq     *atomic.Int64
}

func NewStore() *Store {
	return &Store{
		records: make(map[int64]*record.Record),
		seq:     atomic.NewInt64(0),
	}
}

func (s *Store) FindAll(_ context.Context) ([]*record.Record, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	recs := lo.MapToSlice(s.records, func(_ int64, rec *record.Record) *record.Record {
		return rec.Clone()
	})
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ID < recs[j].ID
	})

	return recs, nil
}

func (s *Store) FindAllIDs(_ context.Context) ([]int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	ids := lo.Keys(s.records)
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return ids, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*record.Record, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}

	return rec.Clone(), true, nil
}

func (s *Store) Save(_ context.Context, rec *record.Record) (*record.Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	saved := rec.Clone()
	if saved.ID == 0 {
		saved.ID = s.seq.Inc()
	} else if saved.ID > s.seq.Load() {
		s.seq.Store(saved.ID)
	}
	s.records[saved.ID] = saved

	return saved.Clone(), nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.records, id)
	return nil
}

func (s *Store) Dispose(_ context.Context) error {
	return nil
}
