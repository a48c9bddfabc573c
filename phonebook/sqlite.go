package phonebook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yllada/vpn-connector/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	name         TEXT PRIMARY KEY,
	phone_number TEXT NOT NULL,
	strategy     INTEGER NOT NULL,
	device_name  TEXT NOT NULL,
	device_type  TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS devices (
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL
);`

// DefaultSQLitePath returns the default location of the portable phonebook.
func DefaultSQLitePath() string {
	dir, err := common.GetConfigDir()
	if err != nil {
		return common.PhoneBookDBFileName
	}
	return filepath.Join(dir, common.PhoneBookDBFileName)
}

// SQLiteOpener opens a portable phonebook stored in a SQLite database.
// The devices table doubles as the device enumeration for hosts without RAS.
type SQLiteOpener struct {
	Path string
	// Seed fills the devices table on first open. Nil means DefaultDevices.
	Seed []Device
}

// Open opens (and if needed creates) the database.
func (o SQLiteOpener) Open(ctx context.Context) (PhoneBook, error) {
	return o.open(ctx)
}

func (o SQLiteOpener) open(ctx context.Context) (*SQLiteBook, error) {
	path := o.Path
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create phonebook directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open phonebook %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	book := &SQLiteBook{db: db}
	if err := book.migrate(ctx, o.seed()); err != nil {
		db.Close()
		return nil, err
	}
	common.LogDebug("Opened SQLite phonebook %s", path)
	return book, nil
}

func (o SQLiteOpener) seed() []Device {
	if o.Seed != nil {
		return o.Seed
	}
	return DefaultDevices
}

// Devices lists the devices table.
func (o SQLiteOpener) Devices(ctx context.Context) ([]Device, error) {
	book, err := o.open(ctx)
	if err != nil {
		return nil, err
	}
	defer book.Close()
	return book.Devices(ctx)
}

// SQLiteBook is an opened SQLite phonebook.
type SQLiteBook struct {
	db *sql.DB
}

func (b *SQLiteBook) migrate(ctx context.Context, seed []Device) error {
	if _, err := b.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to configure phonebook: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate phonebook: %w", err)
	}
	for _, d := range seed {
		if _, err := b.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO devices (name, type) VALUES (?, ?)`, d.Name, d.Type); err != nil {
			return fmt.Errorf("failed to seed devices: %w", err)
		}
	}
	return nil
}

// Devices lists the devices known to the database.
func (b *SQLiteBook) Devices(ctx context.Context) ([]Device, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name, type FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.Name, &d.Type); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (b *SQLiteBook) Contains(ctx context.Context, name string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query phonebook: %w", err)
	}
	return n > 0, nil
}

func (b *SQLiteBook) Entry(ctx context.Context, name string) (Entry, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT name, phone_number, strategy, device_name, device_type FROM entries WHERE name = ?`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

func (b *SQLiteBook) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name, phone_number, strategy, device_name, device_type FROM entries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *SQLiteBook) Add(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE name = ?`, entry.Name).Scan(&n); err != nil {
		return fmt.Errorf("failed to query phonebook: %w", err)
	}
	if n > 0 {
		return ErrEntryExists
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (name, phone_number, strategy, device_name, device_type, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.PhoneNumber, int(entry.Strategy), entry.Device.Name, entry.Device.Type, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add entry %s: %w", entry.Name, err)
	}
	return tx.Commit()
}

func (b *SQLiteBook) Update(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	res, err := b.db.ExecContext(ctx,
		`UPDATE entries SET phone_number = ?, strategy = ?, device_name = ?, device_type = ?, updated_at = ?
		 WHERE name = ?`,
		entry.PhoneNumber, int(entry.Strategy), entry.Device.Name, entry.Device.Type, time.Now().Unix(), entry.Name)
	if err != nil {
		return fmt.Errorf("failed to update entry %s: %w", entry.Name, err)
	}
	return requireAffected(res)
}

func (b *SQLiteBook) Remove(ctx context.Context, name string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM entries WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove entry %s: %w", name, err)
	}
	return requireAffected(res)
}

// Close closes the database handle.
func (b *SQLiteBook) Close() error {
	return b.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e        Entry
		strategy int
	)
	if err := row.Scan(&e.Name, &e.PhoneNumber, &strategy, &e.Device.Name, &e.Device.Type); err != nil {
		return Entry{}, err
	}
	e.Strategy = Strategy(strategy)
	return e, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
