package queue

import (
	"flag"

	"github.com/ValerySidorin/stockpile/pkg/queue/nats"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

type Config struct {
	Type string      `yaml:"type"`
	Nats nats.Config `yaml:"nats"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Type, flagPrefix+"type", "", `Queue, that batch run notifications are published to. Supported values are: nats. Empty disables publishing.`)
	c.Nats.RegisterFlags(flagPrefix, f)
}

type Publisher interface {
	Pub(subject string, data []byte) error
	Close() error
}

func NewPublisher(cfg Config, log log.Logger) (Publisher, error) {
	switch cfg.Type {
	case "nats":
		return nats.NewClient(cfg.Nats, log)
	default:
		return nil, errors.Errorf("invalid queue type: %q", cfg.Type)
	}
}
