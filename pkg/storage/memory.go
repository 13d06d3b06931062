package storage

import (
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memFile struct {
	data    []byte
	modTime time.Time
}

// Memory is an in-memory FileSystem. Directories are created implicitly for
// every file written.
type Memory struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]struct{}

	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]*memFile),
		dirs:  map[string]struct{}{string(filepath.Separator): {}},
		Now:   time.Now,
	}
}

func (m *Memory) WriteFile(path string, data []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(path, data, modTime)
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, ErrNotExist
	}

	return append([]byte(nil), f.data...), nil
}

// Files returns the sorted paths of all files.
func (m *Memory) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]string, 0, len(m.files))
	for p := range m.files {
		result = append(result, p)
	}
	sort.Strings(result)

	return result
}

func (m *Memory) ReadLines(path string) ([]string, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.Replace(string(data), "\r\n", "\n", -1)
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}

	return strings.Split(text, "\n"), nil
}

func (m *Memory) List(dir string) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir = filepath.Clean(dir)
	if _, ok := m.dirs[dir]; !ok {
		return nil, &os.PathError{Op: "open", Path: dir, Err: os.ErrNotExist}
	}

	var result []FileInfo

	for p, f := range m.files {
		if filepath.Dir(p) == dir {
			result = append(result, FileInfo{Name: filepath.Base(p), Size: int64(len(f.data)), ModTime: f.modTime})
		}
	}

	for d := range m.dirs {
		if d != dir && filepath.Dir(d) == dir {
			result = append(result, FileInfo{Name: filepath.Base(d), IsDir: true})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func (m *Memory) Glob(pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []string

	for p := range m.files {
		ok, err := filepath.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, p)
		}
	}

	sort.Strings(result)

	return result, nil
}

func (m *Memory) FileExists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.files[filepath.Clean(path)]
	return ok
}

func (m *Memory) DirExists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.dirs[filepath.Clean(path)]
	return ok
}

func (m *Memory) Stat(path string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)

	if f, ok := m.files[path]; ok {
		return FileInfo{Name: filepath.Base(path), Size: int64(len(f.data)), ModTime: f.modTime}, nil
	}
	if _, ok := m.dirs[path]; ok {
		return FileInfo{Name: filepath.Base(path), IsDir: true}, nil
	}

	return FileInfo{}, ErrNotExist
}

func (m *Memory) Move(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.get(src)
	if err != nil {
		return err
	}
	if err := m.requireDir(dst); err != nil {
		return err
	}

	delete(m.files, filepath.Clean(src))
	m.files[filepath.Clean(dst)] = f

	return nil
}

func (m *Memory) Copy(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.get(src)
	if err != nil {
		return err
	}
	if err := m.requireDir(dst); err != nil {
		return err
	}

	m.put(dst, append([]byte(nil), f.data...), m.Now())

	return nil
}

func (m *Memory) Touch(path string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.get(path)
	if err != nil {
		return err
	}

	f.modTime = t

	return nil
}

func (m *Memory) Truncate(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.get(path)
	if err != nil {
		return err
	}

	f.data = nil
	f.modTime = m.Now()

	return nil
}

func (m *Memory) Create(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[filepath.Clean(path)]; ok {
		return &os.PathError{Op: "create", Path: path, Err: os.ErrExist}
	}
	if err := m.requireDir(path); err != nil {
		return err
	}

	m.put(path, nil, m.Now())

	return nil
}

func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.get(path); err != nil {
		return err
	}

	delete(m.files, filepath.Clean(path))

	return nil
}

func (m *Memory) Shred(path string, cycles int) error {
	return m.Remove(path)
}

func (m *Memory) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mkdirAll(filepath.Clean(dir))

	return nil
}

func (m *Memory) Header(path string, n int) ([]byte, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) > n {
		data = data[:n]
	}

	return data, nil
}

func (m *Memory) Open(path string) (io.ReadCloser, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Compress(src, dst string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireDir(dst); err != nil {
		return err
	}

	m.put(dst, buf.Bytes(), m.Now())

	return nil
}

func (m *Memory) get(path string) (*memFile, error) {
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}

	return f, nil
}

func (m *Memory) requireDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if _, ok := m.dirs[dir]; !ok {
		return &os.PathError{Op: "open", Path: dir, Err: os.ErrNotExist}
	}

	return nil
}

func (m *Memory) put(path string, data []byte, modTime time.Time) {
	path = filepath.Clean(path)

	m.mkdirAll(filepath.Dir(path))
	m.files[path] = &memFile{data: data, modTime: modTime}
}

func (m *Memory) mkdirAll(dir string) {
	for {
		m.dirs[dir] = struct{}{}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
