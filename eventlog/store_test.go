package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"gorm.io/gorm"

	"rentacar/core/types"
)

type payloadEvent struct{ evt *types.Event }

func (p payloadEvent) EventType() string    { return p.evt.Type }
func (p payloadEvent) Event() *types.Event { return p.evt }

type bareEvent string

func (b bareEvent) EventType() string { return string(b) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAssignsSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, &types.Event{Type: "rentacar.car_added", Attributes: map[string]string{"owner": "rac1x"}})
	require.NoError(t, err)
	second, err := store.Append(ctx, &types.Event{Type: "rentacar.rented", Attributes: map[string]string{"totalAmount": "1000004500"}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.Sequence)
	require.Equal(t, uint64(2), second.Sequence)
	require.NotEqual(t, first.ID, second.ID)

	_, err = store.Append(ctx, nil)
	require.ErrorIs(t, err, ErrNilEvent)
}

func TestRecentFiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, &types.Event{Type: "rentacar.rented", Attributes: map[string]string{"i": fmt.Sprint(i)}})
		require.NoError(t, err)
	}
	_, err := store.Append(ctx, &types.Event{Type: "rentacar.payout"})
	require.NoError(t, err)

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "rentacar.payout", all[0].Type)

	rented, err := store.Recent(ctx, "rentacar.rented", 2)
	require.NoError(t, err)
	require.Len(t, rented, 2)
	require.Equal(t, "2", rented[0].Attributes["i"])
	require.Equal(t, "1", rented[1].Attributes["i"])
}

func TestSequenceResumesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), &types.Event{Type: "rentacar.initialized"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	rec, err := reopened.Append(context.Background(), &types.Event{Type: "rentacar.car_added"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), rec.Sequence)
}

func TestEmitPersistsPayloadEventsOnly(t *testing.T) {
	store := newTestStore(t)
	sub, cancel := store.Hub().Subscribe(4)
	defer cancel()

	store.Emit(bareEvent("ignored"))
	store.Emit(payloadEvent{evt: &types.Event{Type: "bank.transfer", Attributes: map[string]string{"amount": "5"}}})

	select {
	case rec := <-sub:
		require.Equal(t, "bank.transfer", rec.Type)
		require.Equal(t, "5", rec.Attributes["amount"])
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive record")
	}
	records, err := store.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	require.Equal(t, 1, hub.Subscribers())
	hub.Publish(Record{Sequence: 1})
	hub.Publish(Record{Sequence: 2})
	cancel()
	cancel()
	require.Equal(t, 0, hub.Subscribers())

	rec, ok := <-ch
	require.True(t, ok)
	require.Equal(t, uint64(1), rec.Sequence)
	_, ok = <-ch
	require.False(t, ok)
}

func TestExportParquet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, &types.Event{Type: "rentacar.payout", Attributes: map[string]string{"amount": fmt.Sprint(i), "owner": "rac1o"}})
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "events.parquet")
	n, err := store.ExportParquet(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(5), pr.GetNumRows())

	rows := make([]parquetRow, 5)
	require.NoError(t, pr.Read(&rows))
	for i, row := range rows {
		require.Equal(t, int64(i+1), row.Sequence)
		require.Equal(t, "rentacar.payout", row.Type)
		require.Equal(t, fmt.Sprintf("amount=%d;owner=rac1o", i), row.Attributes)
		require.NotEmpty(t, row.ID)
		_, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		require.NoError(t, err)
	}
}

func TestExportParquetRemovesPartialFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Append(ctx, &types.Event{Type: "rentacar.car_added", Attributes: map[string]string{"owner": "rac1o"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "events.parquet")
	_, err = store.ExportParquet(ctx, path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "partial export left behind: %v", statErr)
}
