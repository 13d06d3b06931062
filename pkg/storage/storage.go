package storage

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotExist = errors.New("file does not exist")
)

// GzipMagic is the two byte header of every gzip stream.
var GzipMagic = []byte{0x1f, 0x8b}

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the set of file operations the parser and the rotation
// engine need. Paths are always full paths, never relative to a working
// directory of the implementation.
type FileSystem interface {
	ReadLines(path string) ([]string, error)

	// List returns the entries of dir sorted by name.
	List(dir string) ([]FileInfo, error)
	Glob(pattern string) ([]string, error)

	FileExists(path string) bool
	DirExists(path string) bool
	Stat(path string) (FileInfo, error)

	Move(src, dst string) error
	Copy(src, dst string) error
	Touch(path string, t time.Time) error
	Truncate(path string) error
	Create(path string) error
	Remove(path string) error
	Shred(path string, cycles int) error
	MkdirAll(dir string) error

	// Header returns at most n leading bytes of the file.
	Header(path string, n int) ([]byte, error)
	Open(path string) (io.ReadCloser, error)

	// Compress writes a gzip stream of src into dst, replacing dst.
	Compress(src, dst string) error
}

func IsGzip(header []byte) bool {
	return len(header) >= 2 && header[0] == GzipMagic[0] && header[1] == GzipMagic[1]
}
