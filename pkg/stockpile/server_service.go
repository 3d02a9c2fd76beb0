package stockpile

import (
	"context"

	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/weaveworks/common/server"
)

// newServerService runs serv until the service is stopped.
func newServerService(serv *server.Server) services.Service {
	runFn := func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- serv.Run()
		}()

		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return errors.Wrap(err, "http server")
		}
	}

	stoppingFn := func(_ error) error {
		serv.Shutdown()
		return nil
	}

	return services.NewBasicService(nil, runFn, stoppingFn)
}
