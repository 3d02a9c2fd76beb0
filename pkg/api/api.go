// Package api exposes the record service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"strconv"
	"time"

	"github.com/ValerySidorin/stockpile/pkg/future"
	"github.com/ValerySidorin/stockpile/pkg/items"
	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const prefix = "/api/items"

type Config struct {
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.DurationVar(&c.ProcessTimeout, flagPrefix+"process-timeout", 0, "How long a batch run request waits for the run to finish. 0 waits forever.")
}

type Service interface {
	List(ctx context.Context) ([]*record.Record, error)
	Get(ctx context.Context, id int64) (*record.Record, error)
	Create(ctx context.Context, rec *record.Record) (*record.Record, error)
	Update(ctx context.Context, id int64, rec *record.Record) (*record.Record, error)
	Delete(ctx context.Context, id int64) error
	ProcessAll(ctx context.Context) *future.Future[[]*record.Record]
}

type API struct {
	cfg Config
	svc Service
	log log.Logger
}

func New(cfg Config, svc Service, log log.Logger) *API {
	return &API{
		cfg: cfg,
		svc: svc,
		log: log,
	}
}

func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(prefix, a.list).Methods(http.MethodGet)
	r.HandleFunc(prefix, a.create).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/process", a.process).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/{id:[0-9]+}", a.get).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/{id:[0-9]+}", a.update).Methods(http.MethodPut)
	r.HandleFunc(prefix+"/{id:[0-9]+}", a.delete).Methods(http.MethodDelete)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, recs)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	rec, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rec)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	rec, err := decode(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	saved, err := a.svc.Create(r.Context(), rec)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, saved)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	rec, err := decode(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	saved, err := a.svc.Update(r.Context(), id, rec)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, saved)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	if err := a.svc.Delete(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ProcessTimeout)
		defer cancel()
	}

	recs, err := a.svc.ProcessAll(ctx).Await(ctx)
	if err != nil {
		_ = level.Error(a.log).Log("msg", "batch run failed", "err", err)
		a.writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	a.writeJSON(w, http.StatusOK, recs)
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, &badRequestError{errors.Wrap(err, "invalid id")}
	}
	return id, nil
}

func decode(r *http.Request) (*record.Record, error) {
	rec := &record.Record{}
	if err := json.NewDecoder(r.Body).Decode(rec); err != nil {
		return nil, &badRequestError{errors.Wrap(err, "malformed record")}
	}
	return rec, nil
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var (
		verr record.ValidationError
		berr *badRequestError
	)

	switch {
	case errors.As(err, &verr):
		a.writeJSON(w, http.StatusBadRequest, verr)
	case errors.As(err, &berr):
		a.writeJSON(w, http.StatusBadRequest, errorBody(err))
	case errors.Is(err, items.ErrNotFound):
		a.writeJSON(w, http.StatusNotFound, errorBody(err))
	default:
		_ = level.Error(a.log).Log("msg", "request failed", "err", err)
		a.writeJSON(w, http.StatusInternalServerError, errorBody(err))
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		_ = level.Warn(a.log).Log("msg", "failed to write response", "err", err)
	}
}
