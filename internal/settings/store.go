package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store persists the single Settings document in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates the settings table if needed.
func NewStore(db *sql.DB) (*Store, error) {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create settings table: %v", err)
	}

	return &Store{db: db}, nil
}

// Current returns the stored settings, or the defaults when none were saved.
func (st *Store) Current() (Settings, error) {
	var data string
	err := st.db.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %v", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %v", err)
	}
	return s, nil
}

// Save replaces the stored settings.
func (st *Store) Save(s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %v", err)
	}

	query := `
	INSERT INTO settings (id, data, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := st.db.Exec(query, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save settings: %v", err)
	}
	return nil
}

// Reset restores and stores the defaults.
func (st *Store) Reset() (Settings, error) {
	defaults := Defaults()
	if err := st.Save(defaults); err != nil {
		return Settings{}, err
	}
	return defaults, nil
}
