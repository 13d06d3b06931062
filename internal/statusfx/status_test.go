package statusfx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStatusStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	for _, driver := range []string{DriverFile, DriverSQLite} {
		config := &StatusConfig{Driver: driver, Path: filepath.Join(dir, driver, "status")}

		store, err := OpenStatusStore(config, logger)
		require.Nil(t, err, driver)

		stamp := time.Date(2020, 3, 11, 12, 0, 0, 0, time.Local)
		require.Nil(t, store.Set(context.Background(), "/var/log/app.log", stamp))

		records, err := store.All(context.Background())
		require.Nil(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "/var/log/app.log", records[0].Path)
		assert.True(t, stamp.Equal(records[0].RotatedAt), driver)

		require.Nil(t, store.Close())
	}
}

func TestOpenStatusStore_UnknownDriver(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, err := OpenStatusStore(&StatusConfig{Driver: "redis", Path: "/tmp/status"}, logger)

	assert.NotNil(t, err)
}
