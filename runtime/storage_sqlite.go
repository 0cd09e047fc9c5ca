package runtime

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteVariableStorage implements VariableStorage on a SQLite database
// using modernc.org/sqlite (pure Go). Values survive process restarts, so
// the same storage file can back multiple play sessions.
type SQLiteVariableStorage struct {
	db *sql.DB
}

// NewSQLiteVariableStorage opens or creates a SQLite database at the given
// path and ensures the variables table exists.
func NewSQLiteVariableStorage(path string) (*SQLiteVariableStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// WAL mode so library built-ins can read while the VM writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on %s: %w", path, err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS variables (
		name  TEXT PRIMARY KEY,
		kind  INTEGER NOT NULL,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	return &SQLiteVariableStorage{db: db}, nil
}

// Get returns the stored value for name, if any.
func (s *SQLiteVariableStorage) Get(name string) (Value, bool) {
	var kind int
	var raw string
	err := s.db.QueryRow("SELECT kind, value FROM variables WHERE name = ?", name).Scan(&kind, &raw)
	if err != nil {
		return Value{}, false
	}
	return decodeStoredValue(ValueKind(kind), raw), true
}

// Set stores a value under name, replacing any previous value.
func (s *SQLiteVariableStorage) Set(name string, value Value) {
	s.db.Exec(
		"INSERT INTO variables (name, kind, value) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, value = excluded.value",
		name, int(value.Kind()), value.AsString(),
	)
}

// Clear removes every stored variable.
func (s *SQLiteVariableStorage) Clear() {
	s.db.Exec("DELETE FROM variables")
}

// Names returns the stored variable names in sorted order.
func (s *SQLiteVariableStorage) Names() []string {
	rows, err := s.db.Query("SELECT name FROM variables ORDER BY name")
	if err != nil {
		return nil
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil {
			names = append(names, name)
		}
	}
	return names
}

// Close releases the underlying database handle.
func (s *SQLiteVariableStorage) Close() error {
	return s.db.Close()
}

// decodeStoredValue rebuilds a Value from its stored kind tag and string
// form. Values round-trip through AsString, which is lossless for all three
// kinds.
func decodeStoredValue(kind ValueKind, raw string) Value {
	switch kind {
	case KindNumber:
		v, err := StringValue(raw).ConvertTo(KindNumber)
		if err != nil {
			return StringValue(raw)
		}
		return v
	case KindBoolean:
		v, err := StringValue(raw).ConvertTo(KindBoolean)
		if err != nil {
			return StringValue(raw)
		}
		return v
	default:
		return StringValue(raw)
	}
}
