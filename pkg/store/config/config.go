package config

import (
	"flag"

	"github.com/ValerySidorin/stockpile/pkg/store/config/pg"
)

type Config struct {
	Store       string `yaml:"store"`
	StoreConfig `yaml:",inline"`
}

type StoreConfig struct {
	Pg pg.Config `yaml:"pg"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	c.Pg.RegisterFlags(flagPrefix, f)

	f.StringVar(&c.Store, flagPrefix+"store", "memory", `Store, that will be used to persist records. Supported values are: memory, pg.`)
}
