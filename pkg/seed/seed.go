// Package seed fills the record store with an initial data set at startup.
package seed

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"time"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/store"
	util_http "github.com/ValerySidorin/stockpile/pkg/util/http"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

type Config struct {
	File     string        `yaml:"file"`
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.File, flagPrefix+"file", "", "JSON file with records to insert at startup.")
	f.StringVar(&c.URL, flagPrefix+"url", "", "URL of a JSON document with records to insert at startup. Ignored when a file is set.")
	f.DurationVar(&c.Timeout, flagPrefix+"timeout", 30*time.Second, "Timeout of a single seed download attempt.")
	f.IntVar(&c.RetryMax, flagPrefix+"retry-max", 5, "Maximum number of seed download retries.")
}

func (c *Config) Enabled() bool {
	return c.File != "" || c.URL != ""
}

// Load reads the seed records from the configured file or URL.
func Load(ctx context.Context, cfg Config) ([]*record.Record, error) {
	switch {
	case cfg.File != "":
		f, err := os.Open(cfg.File)
		if err != nil {
			return nil, errors.Wrap(err, "open seed file")
		}
		defer f.Close()

		return decode(f)
	case cfg.URL != "":
		return fetch(ctx, cfg)
	}

	return nil, nil
}

func fetch(ctx context.Context, cfg Config) ([]*record.Record, error) {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.HTTPClient.Timeout = cfg.Timeout

	req, err := retryablehttp.NewRequest("GET", cfg.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetch seed")
	}

	resp, err := c.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "fetch seed")
	}
	defer resp.Body.Close()

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		return nil, errors.Wrap(err, "fetch seed")
	}

	return decode(resp.Body)
}

func decode(r io.Reader) ([]*record.Record, error) {
	recs := make([]*record.Record, 0)
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}

	return recs, nil
}

// Seed inserts every configured record as a new one and returns how many
// were inserted. Ids in the seed are ignored.
func Seed(ctx context.Context, cfg Config, s store.Store, log log.Logger) (int, error) {
	if !cfg.Enabled() {
		return 0, nil
	}

	recs, err := Load(ctx, cfg)
	if err != nil {
		return 0, err
	}

	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			return i, errors.Wrapf(err, "seed record #%d", i)
		}

		rec.ID = 0
		if _, err := s.Save(ctx, rec); err != nil {
			return i, errors.Wrapf(err, "seed record #%d", i)
		}
	}

	_ = level.Info(log).Log("msg", "store seeded", "records", len(recs))
	return len(recs), nil
}
