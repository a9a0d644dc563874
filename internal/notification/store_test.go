package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(2)

	first := NewNotification(TypeInfo, PriorityLow, "first", "m")
	first.Timestamp = time.Now().Add(-2 * time.Hour)
	second := NewNotification(TypeInfo, PriorityLow, "second", "m")
	second.Timestamp = time.Now().Add(-time.Hour)
	third := NewNotification(TypeInfo, PriorityLow, "third", "m")

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))
	require.NoError(t, store.Save(third))

	_, err := store.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound, "oldest notification should be evicted")

	_, err = store.Get(third.ID)
	assert.NoError(t, err)
}

func TestInMemoryStoreListFilters(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	catalogNotif := NewNotification(TypeCatalog, PriorityLow, "catalog", "m").WithComponent("species")
	errorNotif := NewNotification(TypeError, PriorityHigh, "error", "m").WithComponent("datastore")
	require.NoError(t, store.Save(catalogNotif))
	require.NoError(t, store.Save(errorNotif))

	results, err := store.List(&FilterOptions{Types: []Type{TypeError}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, errorNotif.ID, results[0].ID)

	results, err = store.List(&FilterOptions{Component: "species"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, catalogNotif.ID, results[0].ID)
}

func TestInMemoryStoreListExcludesToasts(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	regular := NewNotification(TypeInfo, PriorityLow, "regular", "m")
	toast := NewToast("saved", ToastTypeSuccess).ToNotification()
	require.NoError(t, store.Save(regular))
	require.NoError(t, store.Save(toast))

	results, err := store.List(nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, regular.ID, results[0].ID)
}

func TestInMemoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	older := NewNotification(TypeInfo, PriorityLow, "older", "m")
	older.Timestamp = time.Now().Add(-time.Hour)
	newer := NewNotification(TypeInfo, PriorityLow, "newer", "m")

	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	results, err := store.List(nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newer.ID, results[0].ID)
	assert.Equal(t, older.ID, results[1].ID)
}

func TestInMemoryStoreDeleteExpired(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	expired := NewNotification(TypeInfo, PriorityLow, "expired", "m")
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past

	fresh := NewNotification(TypeInfo, PriorityLow, "fresh", "m")

	require.NoError(t, store.Save(expired))
	require.NoError(t, store.Save(fresh))
	require.NoError(t, store.DeleteExpired())

	_, err := store.Get(expired.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	count, err := store.GetUnreadCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
