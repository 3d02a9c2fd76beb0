package processor

import (
	"sort"
	"sync"
	"time"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/report"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// run is the state shared by the tasks of one ProcessAll call.
type run struct {
	id        string
	startedAt time.Time
	requested int

	mtx       sync.Mutex
	processed []*record.Record

	skipped *atomic.Int64
	failed  *atomic.Int64
}

func newRun() *run {
	return &run{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		skipped:   atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}
}

func (r *run) add(rec *record.Record) {
	r.mtx.Lock()
	r.processed = append(r.processed, rec)
	r.mtx.Unlock()
}

// records returns the processed records ordered by id.
func (r *run) records() []*record.Record {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	res := make([]*record.Record, len(r.processed))
	copy(res, r.processed)
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *run) report(err error) *report.Report {
	r.mtx.Lock()
	processed := len(r.processed)
	r.mtx.Unlock()

	rep := &report.Report{
		RunID:      r.id,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
		Requested:  r.requested,
		Processed:  int64(processed),
		Skipped:    r.skipped.Load(),
		Failed:     r.failed.Load(),
	}
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}
