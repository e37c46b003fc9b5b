package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"finflow/internal/config"
	"finflow/internal/core"
	"finflow/internal/sheets/memory"
	"finflow/internal/storage"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    any
		wantErr bool
	}{
		{name: "memory", backend: config.BackendMemory, want: &storage.MemoryRepository{}},
		{name: "sqlite", backend: config.BackendSQLite, want: &storage.SQLiteRepository{}},
		{name: "unknown", backend: "sheets", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				DataBackend:  tt.backend,
				SQLiteDBPath: filepath.Join(t.TempDir(), "finflow.db"),
			}
			store, err := NewFactory(cfg, nil).OpenStore()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			require.IsType(t, tt.want, store)

			e := core.Expense{
				Date:     core.NewDate(2024, 3, 1),
				Title:    "Rent",
				Amount:   core.Money{Cents: 90000},
				Category: "Housing",
				Type:     core.EntryExpense,
			}
			require.NoError(t, store.CreateExpense(context.Background(), &e))
			got, err := store.GetExpense(context.Background(), e.ID)
			require.NoError(t, err)
			require.Equal(t, "Rent", got.Title)
		})
	}
}

func TestOpenAMQPDisabled(t *testing.T) {
	client, err := NewFactory(&config.Config{}, nil).OpenAMQP()
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestOpenMirrorFallsBackToMemory(t *testing.T) {
	mirror, err := NewFactory(&config.Config{}, nil).OpenMirror(context.Background())
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, mirror)
}
