package stockpile

import (
	"context"
	"flag"

	"github.com/ValerySidorin/stockpile/pkg/api"
	"github.com/ValerySidorin/stockpile/pkg/processor"
	"github.com/ValerySidorin/stockpile/pkg/report"
	"github.com/ValerySidorin/stockpile/pkg/seed"
	"github.com/ValerySidorin/stockpile/pkg/store"
	storecfg "github.com/ValerySidorin/stockpile/pkg/store/config"
	util_log "github.com/ValerySidorin/stockpile/pkg/util/log"
	"github.com/ValerySidorin/stockpile/pkg/workerpool"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/weaveworks/common/server"
	"github.com/weaveworks/common/signals"
)

type Config struct {
	Target string `yaml:"target"`

	Server     server.Config     `yaml:"server"`
	Store      storecfg.Config   `yaml:"store"`
	Seed       seed.Config       `yaml:"seed"`
	WorkerPool workerpool.Config `yaml:"worker_pool"`
	Report     report.Config     `yaml:"report"`
	API        api.Config        `yaml:"api"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Target, "target", All, "Module to run. Supported values are: all, api.")

	c.Server.RegisterFlags(f)
	c.Store.RegisterFlags("store.", f)
	c.Seed.RegisterFlags("seed.", f)
	c.WorkerPool.RegisterFlags("worker-pool.", f)
	c.Report.RegisterFlags("report.", f)
	c.API.RegisterFlags("api.", f)
}

func (c *Config) Validate() error {
	if err := c.WorkerPool.Validate(); err != nil {
		return errors.Wrap(err, "invalid worker pool config")
	}

	switch c.Store.Store {
	case "memory", "":
	case "pg":
		if c.Store.Pg.Conn == "" {
			return errors.New("invalid store config: pg store needs a connection string")
		}
	default:
		return errors.Errorf("invalid store config: unknown store %q", c.Store.Store)
	}

	return nil
}

type Stockpile struct {
	Cfg        Config
	Registerer prometheus.Registerer

	// set during initialization
	ServiceMap    map[string]services.Service
	ModuleManager *modules.Manager

	Server    *server.Server
	Store     store.Store
	Pool      *workerpool.Pool
	Reporter  *report.Reporter
	Processor *processor.Processor
}

func New(cfg Config, reg prometheus.Registerer) (*Stockpile, error) {
	s := &Stockpile{
		Cfg:        cfg,
		Registerer: reg,
	}

	if err := s.setupModuleManager(); err != nil {
		return nil, err
	}

	return s, nil
}

// Run starts the target module with its dependencies and blocks until they
// stop, either on failure or on a termination signal.
func (s *Stockpile) Run() error {
	serviceMap, err := s.ModuleManager.InitModuleServices(s.Cfg.Target)
	if err != nil {
		return err
	}
	s.ServiceMap = serviceMap

	servs := make([]services.Service, 0, len(serviceMap))
	for _, serv := range serviceMap {
		servs = append(servs, serv)
	}

	sm, err := services.NewManager(servs...)
	if err != nil {
		return err
	}

	sm.AddListener(services.NewManagerListener(nil, nil, func(service services.Service) {
		sm.StopAsync()
		for m, serv := range serviceMap {
			if serv == service {
				_ = level.Error(util_log.Logger).Log("msg", "module failed", "module", m, "err", service.FailureCase())
				return
			}
		}
	}))

	handler := signals.NewHandler(s.Cfg.Server.Log)
	go func() {
		handler.Loop()
		sm.StopAsync()
	}()

	if err := sm.StartAsync(context.Background()); err != nil {
		return err
	}

	return sm.AwaitStopped(context.Background())
}
