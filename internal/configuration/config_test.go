package configuration

import (
	"Campus/internal/repo"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, config.Store.Driver)
	assert.Equal(t, 4000, config.Chat.MaxMessageLength)
	assert.Equal(t, 1750*time.Millisecond, config.Presence.QuietInterval)
	assert.Equal(t, 2*time.Minute, config.Calls.StaleTTL)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, config.Calls.IceServers)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"appPort": 9000, "allowedOrigins": ["https://campus.example"]},
		"store": {"driver": "mongo", "database": "school"},
		"calls": {"staleTTL": "45s"}
	}`), 0o600))

	t.Setenv("CAMPUS_SERVER_APPPORT", "9100")
	t.Setenv("CAMPUS_HUB_RATEBURST", "5")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.AppPort)
	assert.Equal(t, []string{"https://campus.example"}, config.Server.AllowedOrigins)
	assert.Equal(t, DriverMongo, config.Store.Driver)
	assert.Equal(t, "school", config.Store.Database)
	assert.Equal(t, "messages", config.Store.MessagesCollection)
	assert.Equal(t, 45*time.Second, config.Calls.StaleTTL)
	assert.Equal(t, 5, config.Hub.RateBurst)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CAMPUS_STORE_DRIVER", "postgres")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestMemoryContainer(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	c, err := NewContainer(*config)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })

	assert.NotNil(t, c.Chats)
	assert.NotNil(t, c.Exchange)
	assert.NotNil(t, c.Media)
	assert.NotNil(t, c.ChatHandler)
	assert.NotNil(t, c.MonitorHandler)
}

func TestMongoContainerClosesConnectionWhenIndexesFail(t *testing.T) {
	// the driver connects lazily, so nothing needs to listen on this port
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)

	origOpen, origEnsure := openConnection, ensureIndexes
	t.Cleanup(func() { openConnection, ensureIndexes = origOpen, origEnsure })
	openConnection = func(uri, database string) (*mongo.Database, error) {
		return client.Database(database), nil
	}
	ensureIndexes = func(context.Context, *mongo.Database, repo.Collections) error {
		return errors.New("not authorized")
	}

	config, err := LoadConfig("")
	require.NoError(t, err)
	config.Store.Driver = DriverMongo

	c, err := NewContainer(*config)
	assert.ErrorContains(t, err, "ensure indexes")
	assert.Nil(t, c)

	// a second disconnect reports the client as already closed
	assert.ErrorIs(t, client.Disconnect(context.Background()), mongo.ErrClientDisconnected)
}
