package storage

import (
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "logrotate-storage")
	require.Nil(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	return dir
}

func TestLocal_ReadLines(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "conf")

	require.Nil(t, ioutil.WriteFile(path, []byte("daily\n  rotate 4\n\n"), 0644))

	lines, err := NewLocal().ReadLines(path)

	assert.Nil(t, err)
	assert.Equal(t, []string{"daily", "  rotate 4", ""}, lines)
}

func TestLocal_ReadLines_Missing(t *testing.T) {
	_, err := NewLocal().ReadLines("/definitely/not/here")

	assert.NotNil(t, err)
}

func TestLocal_ListIsSorted(t *testing.T) {
	dir := tempDir(t)

	for _, name := range []string{"b.log", "a.log", "c.log"} {
		require.Nil(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	entries, err := NewLocal().List(dir)

	require.Nil(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.log", entries[0].Name)
	assert.Equal(t, "b.log", entries[1].Name)
	assert.Equal(t, "c.log", entries[2].Name)
	assert.Equal(t, int64(5), entries[0].Size)
}

func TestLocal_CopyMoveTruncate(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()

	src := filepath.Join(dir, "app.log")
	require.Nil(t, ioutil.WriteFile(src, []byte("hello"), 0640))

	copied := filepath.Join(dir, "app.log.0")
	assert.Nil(t, fs.Copy(src, copied))
	assert.FileExists(t, copied)

	info, err := os.Stat(copied)
	require.Nil(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	assert.Nil(t, fs.Truncate(src))
	st, err := fs.Stat(src)
	require.Nil(t, err)
	assert.Equal(t, int64(0), st.Size)

	moved := filepath.Join(dir, "app.log.1")
	assert.Nil(t, fs.Move(copied, moved))
	assert.False(t, fs.FileExists(copied))
	assert.True(t, fs.FileExists(moved))

	_, err = fs.Stat(copied)
	assert.Equal(t, ErrNotExist, err)
}

func TestLocal_CreateFailsWhenExists(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()
	path := filepath.Join(dir, "app.log")

	assert.Nil(t, fs.Create(path))
	assert.NotNil(t, fs.Create(path))
}

func TestLocal_Touch(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()
	path := filepath.Join(dir, "app.log")
	require.Nil(t, fs.Create(path))

	stamp := time.Date(2020, 5, 6, 7, 8, 9, 0, time.Local)
	assert.Nil(t, fs.Touch(path, stamp))

	info, err := fs.Stat(path)
	require.Nil(t, err)
	assert.True(t, stamp.Equal(info.ModTime))
}

func TestLocal_CompressProducesGzip(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()

	src := filepath.Join(dir, "app.log.1")
	dst := src + ".gz"
	require.Nil(t, ioutil.WriteFile(src, []byte("some log line\n"), 0644))

	require.Nil(t, fs.Compress(src, dst))

	header, err := fs.Header(dst, 2)
	require.Nil(t, err)
	assert.True(t, IsGzip(header))

	f, err := os.Open(dst)
	require.Nil(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.Nil(t, err)

	data, err := ioutil.ReadAll(zr)
	require.Nil(t, err)
	assert.Equal(t, "some log line\n", string(data))
}

func TestLocal_HeaderOfShortFile(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "one")
	require.Nil(t, ioutil.WriteFile(path, []byte{0x1f}, 0644))

	header, err := NewLocal().Header(path, 2)

	assert.Nil(t, err)
	assert.Equal(t, []byte{0x1f}, header)
	assert.False(t, IsGzip(header))
}

func TestLocal_Shred(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()
	path := filepath.Join(dir, "secret.log")
	require.Nil(t, ioutil.WriteFile(path, []byte("password=hunter2"), 0644))

	assert.Nil(t, fs.Shred(path, 3))
	assert.False(t, fs.FileExists(path))
}

func TestLocal_GlobAndDirs(t *testing.T) {
	dir := tempDir(t)
	fs := NewLocal()

	require.Nil(t, fs.MkdirAll(filepath.Join(dir, "nested", "deeper")))
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, "nested", "a.log"), nil, 0644))
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, "nested", "b.txt"), nil, 0644))

	matches, err := fs.Glob(filepath.Join(dir, "*", "*.log"))

	assert.Nil(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "nested", "a.log")}, matches)
	assert.True(t, fs.DirExists(filepath.Join(dir, "nested", "deeper")))
	assert.False(t, fs.FileExists(filepath.Join(dir, "nested")))
}
