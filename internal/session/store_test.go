package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreg/internal/records"
	"fieldreg/pkg/platform/sentinel"
)

// storeContract is shared by every backend, including the integration-tagged ones.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	actor := Actor{
		Ambassador: records.Ambassador{ID: 892, Nombre: "Ana Maria", Apellido: "Torres", NumeroDocumento: "45678912"},
		LoggedInAt: time.Date(2025, 9, 3, 15, 0, 0, 0, time.UTC),
	}

	t.Run("missing session is not found", func(t *testing.T) {
		_, err := store.Load(ctx, "nobody")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s-1", actor))
		got, err := store.Load(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, actor.Ambassador, got.Ambassador)
		assert.True(t, actor.LoggedInAt.Equal(got.LoggedInAt))
	})

	t.Run("save overwrites", func(t *testing.T) {
		updated := actor
		updated.Ambassador.Perfil = "ATET"
		require.NoError(t, store.Save(ctx, "s-1", updated))
		got, err := store.Load(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "ATET", got.Ambassador.Perfil)
	})

	t.Run("clear does not resurrect", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "s-2", actor))
		require.NoError(t, store.Clear(ctx, "s-2"))
		require.NoError(t, store.Clear(ctx, "s-2"))
		_, err := store.Load(ctx, "s-2")
		assert.ErrorIs(t, err, ErrNoActor)

		got, err := store.Load(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, int64(892), got.Ambassador.ID)
	})

	t.Run("empty session id rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, "", actor), ErrEmptySessionID)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embajador.actual.json")
	storeContract(t, NewFileStore(path))

	// A second instance reads what the first wrote.
	got, err := NewFileStore(path).Load(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Torres", got.Ambassador.Apellido)
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background(), "s-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
}
