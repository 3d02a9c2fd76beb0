package pg

import (
	"context"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/store/config/pg"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	selectColumns = "id, name, description, status, email"
)

type Store struct {
	cfg  pg.Config
	log  log.Logger
	pool *pgxpool.Pool
}

// NewStore connects a pgx pool and creates the records table if missing.
func NewStore(ctx context.Context, cfg pg.Config, log log.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Conn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: parse config")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: init connection pool")
	}

	q := `create table if not exists public.records (
		id bigserial primary key,
		name text not null default '',
		description text not null default '',
		status text not null default '',
		email text not null default '');`
	if _, err := pool.Exec(ctx, q); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres: init table")
	}

	_ = level.Debug(log).Log("msg", "postgres store initialized")

	return &Store{
		cfg:  cfg,
		log:  log,
		pool: pool,
	}, nil
}

func (s *Store) FindAll(ctx context.Context) ([]*record.Record, error) {
	q := "select " + selectColumns + " from records order by id;"

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: find all records")
	}
	defer rows.Close()

	recs := make([]*record.Record, 0)
	for rows.Next() {
		rec := record.Record{}
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: find all records")
	}

	return recs, nil
}

func (s *Store) FindAllIDs(ctx context.Context) ([]int64, error) {
	q := "select id from records order by id;"

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: find all ids")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "postgres: scan id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: find all ids")
	}

	return ids, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*record.Record, bool, error) {
	q := "select " + selectColumns + " from records where id = $1;"

	rec := record.Record{}
	if err := scanRecord(s.pool.QueryRow(ctx, q, id), &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &rec, true, nil
}

func (s *Store) Save(ctx context.Context, rec *record.Record) (*record.Record, error) {
	saved := record.Record{}

	if rec.ID == 0 {
		q := `insert into records (name, description, status, email)
	values ($1, $2, $3, $4)
	returning ` + selectColumns + `;`

		row := s.pool.QueryRow(ctx, q, rec.Name, rec.Description, rec.Status, rec.Email)
		if err := scanRecord(row, &saved); err != nil {
			return nil, errors.Wrap(err, "postgres: insert record")
		}

		return &saved, nil
	}

	q := `insert into records (id, name, description, status, email)
	values ($1, $2, $3, $4, $5)
	on conflict (id) do update set
	name = excluded.name,
	description = excluded.description,
	status = excluded.status,
	email = excluded.email
	returning ` + selectColumns + `;`

	row := s.pool.QueryRow(ctx, q, rec.ID, rec.Name, rec.Description, rec.Status, rec.Email)
	if err := scanRecord(row, &saved); err != nil {
		return nil, errors.Wrapf(err, "postgres: upsert record %d", rec.ID)
	}

	return &saved, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, "delete from records where id = $1;", id); err != nil {
		return errors.Wrapf(err, "postgres: delete record %d", id)
	}

	return nil
}

func (s *Store) Dispose(_ context.Context) error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row, rec *record.Record) error {
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Status, &rec.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return errors.Wrap(err, "postgres: scan record")
	}

	return nil
}
