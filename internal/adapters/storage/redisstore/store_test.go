package redisstore

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hylla/kolumn/internal/app"
	"github.com/hylla/kolumn/internal/domain"
)

func newTestStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(client, prefix)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, "kolumn:")

	_, ok, err := store.Get(ctx, "tasks")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "tasks", `{"todo":[]}`))
	raw, err := mr.Get("kolumn:tasks")
	require.NoError(t, err)
	require.Equal(t, `{"todo":[]}`, raw)
	require.Zero(t, mr.TTL("kolumn:tasks"))

	value, ok, err := store.Get(ctx, "tasks")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"todo":[]}`, value)

	require.NoError(t, store.Delete(ctx, "tasks"))
	require.False(t, mr.Exists("kolumn:tasks"))
}

func TestStoreGetSurfacesConnectionErrors(t *testing.T) {
	store, mr := newTestStore(t, "")
	mr.Close()

	_, _, err := store.Get(context.Background(), "tasks")
	require.Error(t, err)
}

func TestOpenPingsServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := Open(context.Background(), Options{Addr: mr.Addr(), Prefix: "k:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = Open(context.Background(), Options{Addr: " "})
	require.Error(t, err)
}

func TestStoreBacksBoardService(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "kolumn:")

	n := 0
	ids := func() string {
		n++
		return "id-" + string(rune('a'+n))
	}
	svc := app.NewService(store, ids, nil, app.ServiceConfig{StorageKey: "board"})
	_, err := svc.Load(ctx)
	require.NoError(t, err)

	task, err := svc.AddTask(ctx, "write docs", domain.PriorityLow)
	require.NoError(t, err)
	_, err = svc.SetPriority(ctx, task.ID, domain.PriorityHigh)
	require.NoError(t, err)

	board, err := app.NewService(store, ids, nil, app.ServiceConfig{StorageKey: "board"}).Load(ctx)
	require.NoError(t, err)
	require.True(t, board.Equal(svc.Board()))
	got, ok := board.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, domain.PriorityHigh, got.Priority)
}
