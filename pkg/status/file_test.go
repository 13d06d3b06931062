package status

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempState(t *testing.T) string {
	dir, err := ioutil.TempDir("", "logrotate-status")
	require.Nil(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	return filepath.Join(dir, "state", "logrotate.status")
}

func TestFileStore_NeverRotatedIsZero(t *testing.T) {
	s, err := OpenFileStore(tempState(t))
	require.Nil(t, err)
	defer s.Close()

	got, err := s.Get(context.Background(), "/var/log/app.log")

	assert.Nil(t, err)
	assert.True(t, got.IsZero())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := tempState(t)
	ctx := context.Background()
	stamp := time.Date(2019, 1, 31, 6, 25, 1, 0, time.Local)

	s, err := OpenFileStore(path)
	require.Nil(t, err)
	require.Nil(t, s.Set(ctx, "/var/log/app.log", stamp))
	require.Nil(t, s.Set(ctx, "/var/log/with space.log", stamp.Add(time.Hour)))
	require.Nil(t, s.Close())

	data, err := ioutil.ReadFile(path)
	require.Nil(t, err)
	assert.Equal(t,
		"logrotate state -- version 2\n"+
			"\"/var/log/app.log\" 2019-1-31-6:25:1\n"+
			"\"/var/log/with space.log\" 2019-1-31-7:25:1\n",
		string(data))

	s, err = OpenFileStore(path)
	require.Nil(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "/var/log/app.log")
	assert.Nil(t, err)
	assert.True(t, stamp.Equal(got))

	records, err := s.All(ctx)
	assert.Nil(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "/var/log/with space.log", records[1].Path)
}

func TestFileStore_SetFailureKeepsPreviousRecord(t *testing.T) {
	path := tempState(t)
	ctx := context.Background()
	stamp := time.Date(2019, 1, 31, 6, 25, 1, 0, time.Local)

	s, err := OpenFileStore(path)
	require.Nil(t, err)
	defer s.Close()

	require.Nil(t, s.Set(ctx, "/var/log/app.log", stamp))

	// the temporary file can not be created next to a state file in a missing directory
	s.path = filepath.Join(filepath.Dir(path), "missing", "logrotate.status")

	assert.NotNil(t, s.Set(ctx, "/var/log/app.log", stamp.Add(24*time.Hour)))
	assert.NotNil(t, s.Set(ctx, "/var/log/new.log", stamp))

	got, err := s.Get(ctx, "/var/log/app.log")
	assert.Nil(t, err)
	assert.True(t, stamp.Equal(got))

	got, err = s.Get(ctx, "/var/log/new.log")
	assert.Nil(t, err)
	assert.True(t, got.IsZero())

	records, err := s.All(ctx)
	assert.Nil(t, err)
	assert.Len(t, records, 1)
}

func TestFileStore_SecondOpenIsLocked(t *testing.T) {
	path := tempState(t)

	s, err := OpenFileStore(path)
	require.Nil(t, err)
	defer s.Close()

	_, err = OpenFileStore(path)

	assert.Equal(t, ErrLocked, err)
}

func TestParseStateLine(t *testing.T) {
	r, ok := parseStateLine(`"/var/log/syslog" 2020-12-1-0:0:0`)
	assert.True(t, ok)
	assert.Equal(t, "/var/log/syslog", r.Path)
	assert.Equal(t, 12, int(r.RotatedAt.Month()))

	_, ok = parseStateLine("logrotate state -- version 2")
	assert.False(t, ok)

	_, ok = parseStateLine(`"/var/log/syslog" garbage`)
	assert.False(t, ok)
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]Record{
		{Path: "/var/log/app.log", RotatedAt: time.Date(2020, 2, 3, 4, 5, 6, 0, time.Local)},
		{Path: "/var/log/new.log"},
	})

	assert.Contains(t, out, "/var/log/app.log")
	assert.Contains(t, out, "2020-02-03 04:05:06")
	assert.Contains(t, out, "never")
}
