package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_CollectsErrorsAndPanics(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	ctx := context.Background()
	boom := errors.New("boom")

	var ran atomic.Int32
	require.True(t, m.Go(ctx, "ok", func(context.Context) error { ran.Add(1); return nil }))
	require.True(t, m.Go(ctx, "fails", func(context.Context) error { return boom }))
	require.True(t, m.Go(ctx, "panics", func(context.Context) error { panic("kaput") }))
	require.True(t, m.Go(ctx, "canceled", func(context.Context) error { return context.Canceled }))

	err := m.Wait()
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrPanic)
	require.ErrorContains(t, err, "fails: boom")
	require.NotErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 1, ran.Load())

	require.False(t, m.Go(ctx, "late", func(context.Context) error { return nil }))
}

func TestManager_Limit(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, m.Go(context.Background(), "blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.False(t, m.Go(context.Background(), "overflow", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	t.Parallel()

	var m *Manager
	require.False(t, m.Go(context.Background(), "x", func(context.Context) error { return nil }))
	require.NoError(t, m.Wait())
}
