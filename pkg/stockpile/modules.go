package stockpile

import (
	"context"

	"github.com/ValerySidorin/stockpile/pkg/api"
	"github.com/ValerySidorin/stockpile/pkg/items"
	"github.com/ValerySidorin/stockpile/pkg/processor"
	"github.com/ValerySidorin/stockpile/pkg/report"
	"github.com/ValerySidorin/stockpile/pkg/seed"
	"github.com/ValerySidorin/stockpile/pkg/store"
	util_log "github.com/ValerySidorin/stockpile/pkg/util/log"
	"github.com/ValerySidorin/stockpile/pkg/workerpool"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/weaveworks/common/server"
)

const (
	Server     = "server"
	Store      = "store"
	WorkerPool = "worker-pool"
	Reporter   = "reporter"
	Processor  = "processor"
	API        = "api"
	All        = "all"
)

func (s *Stockpile) initServer() (services.Service, error) {
	var err error
	s.Server, err = server.New(s.Cfg.Server)
	if err != nil {
		return nil, err
	}

	return newServerService(s.Server), nil
}

func (s *Stockpile) initStore() (services.Service, error) {
	logger := util_log.WithService(util_log.Logger, Store)

	var err error
	s.Store, err = store.New(context.Background(), s.Cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	return services.NewIdleService(func(ctx context.Context) error {
		_, err := seed.Seed(ctx, s.Cfg.Seed, s.Store, logger)
		return err
	}, func(_ error) error {
		return s.Store.Dispose(context.Background())
	}), nil
}

func (s *Stockpile) initWorkerPool() (services.Service, error) {
	var err error
	s.Pool, err = workerpool.New(s.Cfg.WorkerPool, s.Registerer, util_log.WithService(util_log.Logger, WorkerPool))
	if err != nil {
		return nil, err
	}

	return s.Pool, nil
}

func (s *Stockpile) initReporter() (services.Service, error) {
	var err error
	s.Reporter, err = report.New(context.Background(), s.Cfg.Report, util_log.WithService(util_log.Logger, Reporter))
	if err != nil {
		return nil, err
	}

	return services.NewIdleService(nil, func(_ error) error {
		return s.Reporter.Close()
	}), nil
}

func (s *Stockpile) initProcessor() (services.Service, error) {
	s.Processor = processor.New(s.Store, s.Pool, s.Reporter, s.Registerer, util_log.WithService(util_log.Logger, Processor))
	return nil, nil
}

func (s *Stockpile) initAPI() (services.Service, error) {
	a := api.New(s.Cfg.API, items.NewService(s.Store, s.Processor), util_log.WithService(util_log.Logger, API))
	a.RegisterRoutes(s.Server.HTTP)
	return nil, nil
}

func (s *Stockpile) setupModuleManager() error {
	mm := modules.NewManager(util_log.Logger)

	mm.RegisterModule(Server, s.initServer, modules.UserInvisibleModule)
	mm.RegisterModule(Store, s.initStore, modules.UserInvisibleModule)
	mm.RegisterModule(WorkerPool, s.initWorkerPool, modules.UserInvisibleModule)
	mm.RegisterModule(Reporter, s.initReporter, modules.UserInvisibleModule)
	mm.RegisterModule(Processor, s.initProcessor, modules.UserInvisibleModule)
	mm.RegisterModule(API, s.initAPI)
	mm.RegisterModule(All, nil)

	deps := map[string][]string{
		Processor: {Store, WorkerPool, Reporter},
		API:       {Server, Processor},
		All:       {API},
	}
	for mod, targets := range deps {
		if err := mm.AddDependency(mod, targets...); err != nil {
			return err
		}
	}

	s.ModuleManager = mm
	return nil
}
