package pg

import (
	"context"
	"os"
	"testing"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/store/config/pg"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	conn := os.Getenv("STOCKPILE_PG_CONN")
	if conn == "" {
		t.Skip("STOCKPILE_PG_CONN is not set")
	}

	ctx := context.Background()
	s, err := NewStore(ctx, pg.Config{Conn: conn}, log.NewNopLogger())
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, "truncate table records restart identity;")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Dispose(ctx)
	})

	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, record.New("p1", "desc", record.ADDED, "u@mail.com"))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	saved.Status = record.PROCESSED
	updated, err := s.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, record.PROCESSED, updated.Status)

	ids, err := s.FindAllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{saved.ID}, ids)

	got, found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated, got)

	require.NoError(t, s.DeleteByID(ctx, saved.ID))

	_, found, err = s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, found)

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
