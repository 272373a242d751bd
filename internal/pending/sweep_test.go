package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	gotMaxAge time.Duration
	deleted   int64
	err       error
}

func (f *fakeDeleter) DeleteStale(_ context.Context, maxAge time.Duration) (int64, error) {
	f.gotMaxAge = maxAge
	return f.deleted, f.err
}

func TestHandleSweep(t *testing.T) {
	task, err := NewSweepTask(48 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, TypeSweep, task.Type())

	deleter := &fakeDeleter{deleted: 3}
	s := &Sweeper{Store: deleter, Logger: zerolog.Nop()}
	require.NoError(t, s.HandleSweep(context.Background(), task))
	assert.Equal(t, 48*time.Hour, deleter.gotMaxAge)
}

func TestHandleSweepDefaultsMaxAge(t *testing.T) {
	task, err := NewSweepTask(0)
	require.NoError(t, err)

	deleter := &fakeDeleter{}
	s := &Sweeper{Store: deleter, Logger: zerolog.Nop()}
	require.NoError(t, s.HandleSweep(context.Background(), task))
	assert.Equal(t, 72*time.Hour, deleter.gotMaxAge)
}

func TestHandleSweepPropagatesError(t *testing.T) {
	task, err := NewSweepTask(time.Hour)
	require.NoError(t, err)

	deleter := &fakeDeleter{err: errors.New("db down")}
	s := &Sweeper{Store: deleter, Logger: zerolog.Nop()}
	require.Error(t, s.HandleSweep(context.Background(), task))
}
