package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const migrationsTable = "schema_migrations"

// migrationDriver lets golang-migrate apply migrations through an open
// ncruces connection. The connection is owned by DB, so Close is a no-op.
type migrationDriver struct {
	conn   *sql.DB
	locked atomic.Bool
}

var _ database.Driver = (*migrationDriver)(nil)

func newMigrationDriver(conn *sql.DB) (*migrationDriver, error) {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
		version INTEGER NOT NULL PRIMARY KEY,
		dirty   INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	return &migrationDriver{conn: conn}, nil
}

func (d *migrationDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite migration driver is instance-only")
}

func (d *migrationDriver) Close() error {
	return nil
}

func (d *migrationDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrationDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrationDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(body)); err != nil {
		_ = tx.Rollback()
		return database.Error{OrigErr: err, Err: "migration failed", Query: body}
	}
	return tx.Commit()
}

func (d *migrationDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM ` + migrationsTable); err != nil {
		_ = tx.Rollback()
		return err
	}
	if version >= 0 || (version == database.NilVersion && dirty) {
		if _, err := tx.Exec(`INSERT INTO `+migrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (d *migrationDriver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)
	err := d.conn.QueryRow(`SELECT version, dirty FROM ` + migrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}

func (d *migrationDriver) Drop() error {
	rows, err := d.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range tables {
		if _, err := d.conn.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
			return err
		}
	}
	return nil
}
