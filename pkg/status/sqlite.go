package status

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/yurykabanov/logrotate/pkg/util"
)

const (
	statusUpsertQuery = `
		INSERT OR REPLACE INTO rotation_status (path, rotated_at)
		VALUES (?, ?)
	`

	statusSelectOneQuery = `
		SELECT path, rotated_at
		FROM rotation_status
		WHERE path = ?
	`

	statusSelectAllQuery = `
		SELECT path, rotated_at
		FROM rotation_status
		ORDER BY path
	`
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema of db up to date.
func Migrate(db *sqlx.DB, databaseName string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "Unable to open migrations")
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "Unable to create instance of migrate")
	}

	m, err := migrate.NewWithInstance("iofs", source, databaseName, driver)
	if err != nil {
		return errors.Wrap(err, "Unable to create migrate")
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "Unable to migrate DB")
	}

	return nil
}

// SQLiteStore keeps records in the rotation_status table. The db must use
// util.CamelToSnakeCase as its mapper.
type SQLiteStore struct {
	db   *sqlx.DB
	lock *flock.Flock
}

// OpenSQLiteStore locks, opens and migrates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	lock, err := lockState(path)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, errors.Wrap(err, "Unable to open status database")
	}

	db.MapperFunc(util.CamelToSnakeCase)

	err = Migrate(db, "logrotate")
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &SQLiteStore{db: db, lock: lock}, nil
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{
		db: db,
	}
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (time.Time, error) {
	var record Record

	err := s.db.GetContext(ctx, &record, statusSelectOneQuery, path)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	return record.RotatedAt, nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, t time.Time) error {
	stmt, err := s.db.PrepareContext(ctx, statusUpsertQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, path, t)

	return err
}

func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	var records []Record

	err := s.db.SelectContext(ctx, &records, statusSelectAllQuery)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (s *SQLiteStore) Close() error {
	err := s.db.Close()

	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}

	return err
}
