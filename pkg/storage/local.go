package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer f.Close()

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	return lines, nil
}

func (l *Local) List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	result := make([]FileInfo, 0, len(entries))

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// entry was removed while listing
			continue
		}

		result = append(result, toFileInfo(info))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func (l *Local) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (l *Local) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (l *Local) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (l *Local) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FileInfo{}, ErrNotExist
	}
	if err != nil {
		return FileInfo{}, err
	}

	return toFileInfo(info), nil
}

func (l *Local) Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	// Rename doesn't work across different mount points (olddir on another
	// device), so fall back to copy and remove
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || linkErr.Err != syscall.EXDEV {
		return err
	}

	if err := l.Copy(src, dst); err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}

	return os.Remove(src)
}

func (l *Local) Copy(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
	}()

	_, err = io.Copy(out, in)
	if err != nil {
		return
	}

	err = out.Sync()
	if err != nil {
		return
	}

	si, err := os.Stat(src)
	if err != nil {
		return
	}

	return os.Chmod(dst, si.Mode())
}

func (l *Local) Touch(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}

func (l *Local) Truncate(path string) error {
	return os.Truncate(path, 0)
}

func (l *Local) Create(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	return f.Close()
}

func (l *Local) Remove(path string) error {
	return os.Remove(path)
}

func (l *Local) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (l *Local) Header(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)

	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	return buf[:read], nil
}

func (l *Local) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func toFileInfo(info os.FileInfo) FileInfo {
	return FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}
