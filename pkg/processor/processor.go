// Package processor marks every stored record as processed in one
// asynchronous batch run.
package processor

import (
	"context"

	"github.com/ValerySidorin/stockpile/pkg/future"
	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/report"
	"github.com/ValerySidorin/stockpile/pkg/store"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"
)

// Submitter schedules a task to run on another goroutine. A non-nil error
// means the task will never run.
type Submitter interface {
	Submit(task func()) error
}

type Processor struct {
	store    store.Store
	pool     Submitter
	reporter report.Sink
	log      log.Logger

	runsTotal    *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

func New(s store.Store, pool Submitter, reporter report.Sink, reg prometheus.Registerer, log log.Logger) *Processor {
	f := promauto.With(reg)

	return &Processor{
		store:    s,
		pool:     pool,
		reporter: reporter,
		log:      log,

		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpile_batch_runs_total",
			Help: "Total number of batch runs by outcome.",
		}, []string{"outcome"}),
		recordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpile_batch_records_total",
			Help: "Total number of records handled by batch runs, by result.",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpile_batch_run_duration_seconds",
			Help:    "Time from the start of a batch run to its outcome.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ProcessAll returns at once. The returned future resolves with every
// record the run marked as processed, or is rejected with all failures of
// the run combined. If ctx ends first the future is rejected with
// future.ErrTimeout while the run itself carries on to completion.
func (p *Processor) ProcessAll(ctx context.Context) *future.Future[[]*record.Record] {
	res := future.New[[]*record.Record]()
	go p.run(context.WithoutCancel(ctx), res)
	return res.WithContext(ctx)
}

func (p *Processor) run(ctx context.Context, res *future.Future[[]*record.Record]) {
	r := newRun()
	rlog := log.With(p.log, "run", r.id)

	ids, err := p.store.FindAllIDs(ctx)
	if err != nil {
		p.finish(ctx, rlog, r, res, storeFailure(err, "snapshot record ids"))
		return
	}
	r.requested = len(ids)
	_ = level.Debug(rlog).Log("msg", "batch run started", "records", len(ids))

	var submitErr error
	handles := make([]*future.Future[struct{}], 0, len(ids))
	for _, id := range ids {
		id := id
		h := future.New[struct{}]()
		if err := p.pool.Submit(func() { p.processOne(ctx, rlog, r, id, h) }); err != nil {
			submitErr = errors.Wrapf(err, "submit record %d", id)
			_ = level.Warn(rlog).Log("msg", "stopped submitting records", "submitted", len(handles), "err", err)
			break
		}
		handles = append(handles, h)
	}

	_, err = future.AllOf(handles...).Await(ctx)
	p.finish(ctx, rlog, r, res, multierr.Append(submitErr, err))
}

func (p *Processor) processOne(ctx context.Context, rlog log.Logger, r *run, id int64, h *future.Future[struct{}]) {
	var err error

	var pc panics.Catcher
	pc.Try(func() { err = p.process(ctx, rlog, r, id) })
	if rec := pc.Recovered(); rec != nil {
		err = storeFailure(rec.AsError(), "process record %d", id)
	}

	if err != nil {
		r.failed.Inc()
		h.Reject(err)
		return
	}
	h.Resolve(struct{}{})
}

func (p *Processor) process(ctx context.Context, rlog log.Logger, r *run, id int64) error {
	rec, found, err := p.store.FindByID(ctx, id)
	if err != nil {
		return storeFailure(err, "find record %d", id)
	}
	if !found {
		r.skipped.Inc()
		_ = level.Debug(rlog).Log("msg", "record vanished, skipping", "id", id)
		return nil
	}

	rec.Status = record.PROCESSED
	saved, err := p.store.Save(ctx, rec)
	if err != nil {
		return storeFailure(err, "save record %d", id)
	}

	r.add(saved)
	return nil
}

func (p *Processor) finish(ctx context.Context, rlog log.Logger, r *run, res *future.Future[[]*record.Record], err error) {
	rep := r.report(err)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	p.runsTotal.WithLabelValues(outcome).Inc()
	p.recordsTotal.WithLabelValues("processed").Add(float64(rep.Processed))
	p.recordsTotal.WithLabelValues("skipped").Add(float64(rep.Skipped))
	p.recordsTotal.WithLabelValues("failed").Add(float64(rep.Failed))
	p.runDuration.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())

	if err != nil {
		_ = level.Error(rlog).Log("msg", "batch run failed", "err", err)
		res.Reject(err)
	} else {
		res.Resolve(r.records())
	}

	if err := p.reporter.Report(ctx, rep); err != nil {
		_ = level.Warn(rlog).Log("msg", "failed to report batch run", "err", err)
	}
}
