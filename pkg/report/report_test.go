package report

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	objs map[string][]byte
	err  error
}

func (m *mockWriter) Store(_ context.Context, objName string, _ string, r io.Reader) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objs[objName] = b
	return nil
}

type mockPublisher struct {
	msgs   map[string][][]byte
	err    error
	closed bool
}

func (m *mockPublisher) Pub(subject string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.msgs[subject] = append(m.msgs[subject], data)
	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

func testReport() *Report {
	start := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	return &Report{
		RunID:      "c0ffee",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Requested:  5,
		Processed:  4,
		Skipped:    1,
	}
}

func TestReporterFansOut(t *testing.T) {
	w := &mockWriter{objs: map[string][]byte{}}
	pub := &mockPublisher{msgs: map[string][][]byte{}}
	r := NewWithSinks(w, pub, log.NewNopLogger())

	require.NoError(t, r.Report(context.Background(), testReport()))

	require.Contains(t, w.objs, "runs/c0ffee.json")
	got := Report{}
	require.NoError(t, json.Unmarshal(w.objs["runs/c0ffee.json"], &got))
	assert.Equal(t, *testReport(), got)
	assert.True(t, got.Succeeded())

	require.Len(t, pub.msgs[Subject], 1)
	assert.JSONEq(t, string(w.objs["runs/c0ffee.json"]), string(pub.msgs[Subject][0]))

	require.NoError(t, r.Close())
	assert.True(t, pub.closed)
}

func TestReporterCollectsSinkErrors(t *testing.T) {
	werr, perr := errors.New("minio down"), errors.New("nats down")
	r := NewWithSinks(&mockWriter{err: werr}, &mockPublisher{err: perr}, log.NewNopLogger())

	err := r.Report(context.Background(), testReport())
	assert.ErrorIs(t, err, werr)
	assert.ErrorIs(t, err, perr)
}

func TestReporterWithoutSinks(t *testing.T) {
	r, err := New(context.Background(), Config{}, log.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, r.Report(context.Background(), testReport()))
	assert.NoError(t, r.Close())
}
