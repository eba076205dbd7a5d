package catalog

import (
	"database/sql"
	"errors"
)

// ConfigGet retrieves the stringly-typed value of a configuration key.
// Returns ("", false) if the key doesn't exist or is NULL.
func (c *Catalog) ConfigGet(key string) (string, bool, error) {
	var value sql.NullString
	err := c.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

// ConfigPut sets the stringly-typed value of a configuration key.
func (c *Catalog) ConfigPut(key, value string) error {
	_, err := c.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// ConfigExists checks whether a configuration key exists and is not NULL.
func (c *Catalog) ConfigExists(key string) (bool, error) {
	_, ok, err := c.ConfigGet(key)
	return ok, err
}
