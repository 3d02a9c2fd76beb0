package objstore

import (
	"context"
	"flag"
	"io"

	"github.com/ValerySidorin/stockpile/pkg/objstore/minio"
	"github.com/pkg/errors"
)

type Config struct {
	Store  string       `yaml:"store"`
	Bucket string       `yaml:"bucket"`
	Minio  minio.Config `yaml:"minio"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Store, flagPrefix+"store", "", `Object storage, that will be used to archive batch run reports. Supported values are: minio. Empty disables archiving.`)
	f.StringVar(&c.Bucket, flagPrefix+"bucket", "stockpile", `Bucket for batch run reports.`)
	c.Minio.RegisterFlags(flagPrefix, f)
}

type Writer interface {
	Store(ctx context.Context, objName string, contentType string, r io.Reader) error
}

func NewWriter(ctx context.Context, cfg Config) (Writer, error) {
	switch cfg.Store {
	case "minio":
		return minio.NewWriter(ctx, cfg.Minio, cfg.Bucket)
	}

	return nil, errors.Errorf("invalid store for writer: %q", cfg.Store)
}
