package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/clinicbook/clinic-booking/internal/config"
	"github.com/clinicbook/clinic-booking/internal/settings"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	require.NotNil(t, client)
	defer client.Close()

	store := BuildSettingsStore(client, nil)
	_, ok := store.(*settings.RedisStore)
	assert.True(t, ok)

	s, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Default().SiteTitle, s.SiteTitle)
}

func TestBuildRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true))
}

func TestBuildSettingsStoreFallsBackToMemory(t *testing.T) {
	_, ok := BuildSettingsStore(nil, logging.New("error")).(*settings.MemoryStore)
	assert.True(t, ok)
}

func TestBuildDatabasesDisabled(t *testing.T) {
	dbs, err := BuildDatabases(context.Background(), &appconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, dbs)
	dbs.Close()
}
