package storage

import (
	"compress/gzip"
	"crypto/rand"
	"io"
	"os"
)

const shredChunkSize = 64 * 1024

func (l *Local) Compress(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	zw := gzip.NewWriter(out)

	_, err = io.Copy(zw, in)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return err
	}

	return out.Sync()
}

// Shred overwrites the file with random data `cycles` times before removing it.
func (l *Local) Shred(path string, cycles int) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}

	for i := 0; i < cycles; i++ {
		err = overwrite(f, info.Size())
		if err != nil {
			f.Close()
			return err
		}
	}

	err = f.Close()
	if err != nil {
		return err
	}

	return os.Remove(path)
}

func overwrite(f *os.File, size int64) error {
	_, err := f.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	buf := make([]byte, shredChunkSize)

	for left := size; left > 0; {
		n := int64(len(buf))
		if left < n {
			n = left
		}

		_, err = rand.Read(buf[:n])
		if err != nil {
			return err
		}

		_, err = f.Write(buf[:n])
		if err != nil {
			return err
		}

		left -= n
	}

	return f.Sync()
}
