package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (s *countingSyncer) ProcessPending(context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
}

func TestNewSyncProcessor_ZeroInterval(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, SyncProcessorConfig{})

	if processor.config.PollInterval != 30*time.Second {
		t.Errorf("expected default PollInterval, got %v", processor.config.PollInterval)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "sweeps succeed"},
		{name: "sweep errors keep the loop alive", err: errors.New("sheets unavailable")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &countingSyncer{err: tt.err}
			processor := NewSyncProcessor(syncer, SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			require.NoError(t, processor.Start(ctx))
			require.True(t, processor.IsRunning())
			require.Error(t, processor.Start(ctx), "second start must fail")

			require.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
			defer stopCancel()
			require.NoError(t, processor.Stop(stopCtx))
			require.False(t, processor.IsRunning())

			after := syncer.calls.Load()
			time.Sleep(30 * time.Millisecond)
			require.Equal(t, after, syncer.calls.Load())
		})
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_Restart(t *testing.T) {
	syncer := &countingSyncer{}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{PollInterval: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, processor.Start(ctx))
		require.NoError(t, processor.Stop(ctx))
	}
	require.Eventually(t, func() bool { return syncer.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}
