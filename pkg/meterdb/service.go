// MeterDB keeps the latest known state of every meter, one row per state key.
// There is no history: every reading overwrites the previous values.
// This database should only be written to by meter_collector
// but can be read by any service.
package meterdb

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Store struct {
	db *sql.DB
}

// Open the database at path and apply migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open meter db %s: %w", path, err)
	}
	// Create DB before migrations
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open meter db %s: %w", path, err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	logrus.WithField("path", path).Debug("Meter db ready")
	return newStore(db), nil
}

func newStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertStates replaces the stored states of meterID with the given set.
// Keys missing from states are removed.
func (s *Store) UpsertStates(meterID string, states map[string]string, updatedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM device_states WHERE meter_id = ?", meterID); err != nil {
		return fmt.Errorf("failed to clear states of %s: %w", meterID, err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO device_states (meter_id, state_key, state_value, updated_at) " +
			"VALUES (?, ?, ?, ?) " +
			"ON CONFLICT(meter_id, state_key) DO UPDATE SET " +
			"state_value = excluded.state_value, updated_at = excluded.updated_at",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range states {
		if _, err := stmt.Exec(meterID, key, value, updatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to store state %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetStates(meterID string) (map[string]string, error) {
	rows, err := s.db.Query(
		"SELECT state_key, state_value FROM device_states WHERE meter_id = ?",
		meterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		states[key] = value
	}
	return states, rows.Err()
}

func (s *Store) GetMeterIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT meter_id FROM device_states ORDER BY meter_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
