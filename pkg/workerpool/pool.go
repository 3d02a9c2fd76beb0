package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/atomic"
)

// ErrRejectedExecution is returned by Submit when the queue is full and
// the pool already runs MaxSize workers, or when the pool is not running.
var ErrRejectedExecution = errors.New("worker pool: task rejected")

type Stats struct {
	Workers   int
	Queued    int
	Completed uint64
	Rejected  uint64
}

// Pool runs submitted tasks on a bounded set of goroutines. CoreSize
// workers live as long as the pool. Tasks are queued first; once the queue
// is full extra workers are started up to MaxSize; beyond that tasks are
// rejected.
type Pool struct {
	services.Service

	cfg Config
	log log.Logger

	tasks chan func()
	quit  chan struct{}

	// mtx guards accepting. Submit holds it for reading so that stopping
	// can not close quit while a task is being enqueued.
	mtx       sync.RWMutex
	accepting bool
	wg        sync.WaitGroup

	workers   *atomic.Int32
	seq       *atomic.Int64
	completed *atomic.Uint64
	rejected  *atomic.Uint64

	completedTotal prometheus.Counter
	rejectedTotal  prometheus.Counter
	panicsTotal    prometheus.Counter
}

func New(cfg Config, reg prometheus.Registerer, log log.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg: cfg,
		log: log,

		tasks: make(chan func(), cfg.QueueCapacity),
		quit:  make(chan struct{}),

		workers:   atomic.NewInt32(0),
		seq:       atomic.NewInt64(0),
		completed: atomic.NewUint64(0),
		rejected:  atomic.NewUint64(0),
	}

	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "stockpile_worker_pool_workers",
		Help: "Number of live workers.",
	}, func() float64 { return float64(p.workers.Load()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "stockpile_worker_pool_queue_length",
		Help: "Number of tasks waiting for a worker.",
	}, func() float64 { return float64(len(p.tasks)) })
	p.completedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "stockpile_worker_pool_tasks_completed_total",
		Help: "Total number of tasks run to completion.",
	})
	p.rejectedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "stockpile_worker_pool_tasks_rejected_total",
		Help: "Total number of tasks rejected at submission.",
	})
	p.panicsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "stockpile_worker_pool_task_panics_total",
		Help: "Total number of tasks that panicked.",
	})

	p.Service = services.NewIdleService(p.starting, p.stopping)

	return p, nil
}

func (p *Pool) starting(_ context.Context) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for i := 0; i < p.cfg.CoreSize; i++ {
		p.workers.Inc()
		p.startWorker(nil, true)
	}
	p.accepting = true

	_ = level.Info(p.log).Log("msg", "worker pool started", "core_size", p.cfg.CoreSize, "max_size", p.cfg.MaxSize, "queue_capacity", p.cfg.QueueCapacity)
	return nil
}

// stopping rejects new tasks, lets the workers drain what is already queued
// and waits for them.
func (p *Pool) stopping(_ error) error {
	p.mtx.Lock()
	p.accepting = false
	close(p.quit)
	p.mtx.Unlock()

	p.wg.Wait()

	_ = level.Info(p.log).Log("msg", "worker pool stopped", "completed", p.completed.Load(), "rejected", p.rejected.Load())
	return nil
}

// Submit schedules task. A non-nil error means the task will never run.
func (p *Pool) Submit(task func()) error {
	p.mtx.RLock()
	defer p.mtx.RUnlock()

	if !p.accepting {
		p.reject()
		return errors.Wrap(ErrRejectedExecution, "pool is not running")
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	for {
		n := p.workers.Load()
		if int(n) >= p.cfg.MaxSize {
			p.reject()
			return errors.Wrapf(ErrRejectedExecution, "%d workers busy and %d tasks queued", n, p.cfg.QueueCapacity)
		}

		if p.workers.CompareAndSwap(n, n+1) {
			p.startWorker(task, false)
			return nil
		}
	}
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   int(p.workers.Load()),
		Queued:    len(p.tasks),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

func (p *Pool) reject() {
	p.rejected.Inc()
	p.rejectedTotal.Inc()
}

// startWorker expects the caller to have counted the worker already.
func (p *Pool) startWorker(first func(), core bool) {
	name := fmt.Sprintf("%s-%d", p.cfg.NamePrefix, p.seq.Inc())
	wlog := log.With(p.log, "worker", name)

	p.wg.Add(1)
	go func() {
		defer func() {
			p.workers.Dec()
			p.wg.Done()
		}()

		if first != nil {
			p.run(wlog, first)
		}

		var idle *time.Timer
		if !core {
			idle = time.NewTimer(p.cfg.KeepAlive)
			defer idle.Stop()
		}

		for {
			select {
			case task := <-p.tasks:
				p.run(wlog, task)
				if idle != nil {
					if !idle.Stop() {
						<-idle.C
					}
					idle.Reset(p.cfg.KeepAlive)
				}
			case <-timerC(idle):
				_ = level.Debug(wlog).Log("msg", "idle worker exiting")
				return
			case <-p.quit:
				p.drain(wlog)
				return
			}
		}
	}()
}

func (p *Pool) drain(wlog log.Logger) {
	for {
		select {
		case task := <-p.tasks:
			p.run(wlog, task)
		default:
			return
		}
	}
}

func (p *Pool) run(wlog log.Logger, task func()) {
	var pc panics.Catcher
	pc.Try(task)
	if r := pc.Recovered(); r != nil {
		p.panicsTotal.Inc()
		_ = level.Error(wlog).Log("msg", "task panicked", "err", r.AsError())
	}

	p.completed.Inc()
	p.completedTotal.Inc()
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
