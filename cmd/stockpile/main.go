package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ValerySidorin/stockpile/pkg/stockpile"
	util_log "github.com/ValerySidorin/stockpile/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"
)

const configFileOption = "config.file"

func main() {
	var (
		cfg        stockpile.Config
		configFile string
	)

	flagext.DefaultValues(&cfg)

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configFile, configFileOption, "", "Configuration file to load.")
	cfg.RegisterFlags(fs)

	// Flags override the file, so the file is loaded before parsing them.
	if path := configFileFromArgs(os.Args[1:]); path != "" {
		if err := loadConfig(path, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error loading config from %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error validating config: %v\n", err)
		os.Exit(1)
	}

	util_log.InitLogger(&cfg.Server)

	t, err := stockpile.New(cfg, prometheus.DefaultRegisterer)
	util_log.CheckFatal("initializing application", err)

	_ = level.Info(util_log.Logger).Log("msg", "starting stockpile", "target", cfg.Target)

	err = t.Run()
	util_log.CheckFatal("running application", err)
}

func loadConfig(path string, cfg *stockpile.Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	if err := yaml.UnmarshalStrict(buf, cfg); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	return nil
}

// configFileFromArgs looks up -config.file without parsing the other flags.
// Parsing stops at the first unknown flag, so the remaining args are retried
// until the option is found or none are left.
func configFileFromArgs(args []string) (path string) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, configFileOption, "", "")

	for len(args) > 0 {
		_ = fs.Parse(args)
		args = args[1:]
	}

	return path
}
