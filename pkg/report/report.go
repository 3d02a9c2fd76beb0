// Package report archives and announces the outcome of batch runs.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"time"

	"github.com/ValerySidorin/stockpile/pkg/objstore"
	"github.com/ValerySidorin/stockpile/pkg/queue"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	Subject     = "stockpile.runs"
	objPrefix   = "runs/"
	contentType = "application/json"
)

type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Requested  int       `json:"requested"`
	Processed  int64     `json:"processed"`
	Skipped    int64     `json:"skipped"`
	Failed     int64     `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

func (r *Report) Succeeded() bool {
	return r.Error == ""
}

// Sink receives the report of every finished batch run.
type Sink interface {
	Report(ctx context.Context, r *Report) error
}

type Config struct {
	ObjStore objstore.Config `yaml:"obj_store"`
	Queue    queue.Config    `yaml:"queue"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	c.ObjStore.RegisterFlags(flagPrefix+"obj-store.", f)
	c.Queue.RegisterFlags(flagPrefix+"queue.", f)
}

// Reporter fans a report out to every configured sink. With no sinks
// configured it only logs.
type Reporter struct {
	log log.Logger
	w   objstore.Writer
	pub queue.Publisher
}

func New(ctx context.Context, cfg Config, log log.Logger) (*Reporter, error) {
	r := &Reporter{log: log}

	if cfg.ObjStore.Store != "" {
		w, err := objstore.NewWriter(ctx, cfg.ObjStore)
		if err != nil {
			return nil, errors.Wrap(err, "reporter connect to obj store")
		}
		r.w = w
	}

	if cfg.Queue.Type != "" {
		pub, err := queue.NewPublisher(cfg.Queue, log)
		if err != nil {
			return nil, errors.Wrap(err, "reporter connect to queue")
		}
		r.pub = pub
	}

	return r, nil
}

func NewWithSinks(w objstore.Writer, pub queue.Publisher, log log.Logger) *Reporter {
	return &Reporter{
		log: log,
		w:   w,
		pub: pub,
	}
}

func (r *Reporter) Report(ctx context.Context, rep *Report) error {
	_ = level.Info(r.log).Log("msg", "batch run finished", "run", rep.RunID,
		"requested", rep.Requested, "processed", rep.Processed, "skipped", rep.Skipped,
		"failed", rep.Failed, "duration", rep.FinishedAt.Sub(rep.StartedAt), "err", rep.Error)

	if r.w == nil && r.pub == nil {
		return nil
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}

	var errs error
	if r.w != nil {
		if err := r.w.Store(ctx, objPrefix+rep.RunID+".json", contentType, bytes.NewReader(body)); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "archive report"))
		}
	}
	if r.pub != nil {
		if err := r.pub.Pub(Subject, body); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "publish report"))
		}
	}

	return errs
}

func (r *Reporter) Close() error {
	if r.pub == nil {
		return nil
	}
	return r.pub.Close()
}

// Nop discards reports.
type Nop struct{}

func (Nop) Report(context.Context, *Report) error {
	return nil
}
