package status

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const (
	stateHeader     = "logrotate state -- version 2"
	stateTimeLayout = "2006-1-2-15:4:5"
)

// FileStore keeps records in a flat text file using the classic logrotate
// state format:
//
//     logrotate state -- version 2
//     "/var/log/syslog" 2019-1-31-6:25:1
//
// The whole file is rewritten on every Set. A lock file next to the state
// file prevents two processes from rotating at the same time.
type FileStore struct {
	path    string
	lock    *flock.Flock
	records map[string]time.Time
}

func OpenFileStore(path string) (*FileStore, error) {
	lock, err := lockState(path)
	if err != nil {
		return nil, err
	}

	s := &FileStore{
		path:    path,
		lock:    lock,
		records: make(map[string]time.Time),
	}

	if err := s.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return s, nil
}

func (s *FileStore) Get(ctx context.Context, path string) (time.Time, error) {
	return s.records[path], nil
}

// Set records the rotation and rewrites the state file. When the file cannot
// be written the in-memory record is restored so Get keeps matching the disk.
func (s *FileStore) Set(ctx context.Context, path string, t time.Time) error {
	prev, had := s.records[path]
	s.records[path] = t

	err := s.save()
	if err != nil {
		if had {
			s.records[path] = prev
		} else {
			delete(s.records, path)
		}
	}

	return err
}

func (s *FileStore) All(ctx context.Context) ([]Record, error) {
	result := make([]Record, 0, len(s.records))

	for path, t := range s.records {
		result = append(result, Record{Path: path, RotatedAt: t})
	}

	sortRecords(result)

	return result, nil
}

func (s *FileStore) Close() error {
	return s.lock.Unlock()
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "Unable to open state file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if record, ok := parseStateLine(scanner.Text()); ok {
			s.records[record.Path] = record.RotatedAt
		}
	}

	return errors.Wrap(scanner.Err(), "Unable to read state file")
}

func (s *FileStore) save() error {
	tmp, err := ioutil.TempFile(filepath.Dir(s.path), filepath.Base(s.path)+".tmp")
	if err != nil {
		return errors.Wrap(err, "Unable to create temporary state file")
	}

	records, _ := s.All(context.Background())

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, stateHeader)
	for _, r := range records {
		fmt.Fprintf(w, "%q %s\n", r.Path, r.RotatedAt.In(time.Local).Format(stateTimeLayout))
	}

	err = w.Flush()
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}

	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "Unable to write state file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), s.path), "Unable to replace state file")
}

func parseStateLine(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "\"") {
		return Record{}, false
	}

	end := strings.LastIndex(line, "\"")
	if end <= 0 {
		return Record{}, false
	}

	t, err := time.ParseInLocation(stateTimeLayout, strings.TrimSpace(line[end+1:]), time.Local)
	if err != nil {
		return Record{}, false
	}

	path, err := strconv.Unquote(line[:end+1])
	if err != nil {
		// written by a tool that doesn't escape paths
		path = line[1:end]
	}

	return Record{Path: path, RotatedAt: t}, true
}
