package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinicbook/clinic-booking/internal/apperr"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	store.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	return store, mr
}

func TestRedisStoreGetPersistsDefaults(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default().WorkingHours, s.WorkingHours)
	assert.True(t, mr.Exists(redisKey), "defaults should be written on first read")

	again, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.CreatedAt, again.CreatedAt)
}

func TestRedisStoreSaveRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := Default()
	s.SiteTitle = "Back in Balance"
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Back in Balance", got.SiteTitle)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(redisKey, "{not json"))

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings: unmarshal")
}

func TestCacheServesWithoutStoreAfterLoad(t *testing.T) {
	store, mr := newRedisStore(t)
	cache := NewCache(store)
	ctx := context.Background()

	_, err := cache.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, mr.Set(redisKey, "{not json"))

	hours, err := cache.WorkingHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, "17:00", hours["friday"].End)
}

func TestCacheUpdateRefreshes(t *testing.T) {
	cache := NewCache(NewMemoryStore())
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	title := "New Title"
	saved, changed, err := cache.Update(ctx, Patch{SiteTitle: &title, WorkingHours: WorkingHours{"sunday": {"10:00", "12:00"}}})
	require.NoError(t, err)
	assert.Equal(t, title, saved.SiteTitle)
	assert.ElementsMatch(t, []string{"siteTitle", "workingHours"}, changed)

	hours, err := cache.WorkingHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, DayHours{"10:00", "12:00"}, hours["sunday"])
}

type nilHoursStore struct{}

func (nilHoursStore) Get(context.Context) (*Settings, error) { return &Settings{SiteTitle: "x"}, nil }
func (nilHoursStore) Save(context.Context, *Settings) error  { return nil }

func TestCacheMissingWorkingHours(t *testing.T) {
	_, err := NewCache(nilHoursStore{}).WorkingHours(context.Background())
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}
