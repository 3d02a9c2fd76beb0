package workerpool

import (
	"flag"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	CoreSize      int           `yaml:"core_size"`
	MaxSize       int           `yaml:"max_size"`
	QueueCapacity int           `yaml:"queue_capacity"`
	NamePrefix    string        `yaml:"name_prefix"`
	KeepAlive     time.Duration `yaml:"keep_alive"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.IntVar(&c.CoreSize, flagPrefix+"core-size", 10, "Number of workers kept alive even when idle.")
	f.IntVar(&c.MaxSize, flagPrefix+"max-size", 20, "Maximum number of workers, reached only when the queue is full.")
	f.IntVar(&c.QueueCapacity, flagPrefix+"queue-capacity", 100, "Number of pending tasks buffered before extra workers are started.")
	f.StringVar(&c.NamePrefix, flagPrefix+"name-prefix", "record-worker", "Prefix of worker names in logs.")
	f.DurationVar(&c.KeepAlive, flagPrefix+"keep-alive", time.Minute, "Idle time after which a worker above the core size exits.")
}

func (c *Config) Validate() error {
	if c.CoreSize < 1 {
		return errors.Errorf("worker pool: core size must be positive, got %d", c.CoreSize)
	}
	if c.MaxSize < c.CoreSize {
		return errors.Errorf("worker pool: max size %d is less than core size %d", c.MaxSize, c.CoreSize)
	}
	if c.QueueCapacity < 0 {
		return errors.Errorf("worker pool: queue capacity must not be negative, got %d", c.QueueCapacity)
	}
	if c.KeepAlive <= 0 {
		return errors.Errorf("worker pool: keep alive must be positive, got %s", c.KeepAlive)
	}

	return nil
}
