package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BasePostgresPort is the first host port handed out for provisioned
// databases.
const BasePostgresPort = 5432

type Database struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	ContainerID *string   `json:"container_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) CreateDatabase(name string, port int, username, password string) (*Database, error) {
	res, err := s.db.Exec(
		"INSERT INTO databases (name, port, username, password) VALUES (?, ?, ?, ?)",
		name, port, username, password,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return s.GetDatabaseByID(id)
}

func (s *Store) AttachDatabaseContainer(databaseID int64, containerID string) error {
	res, err := s.db.Exec(
		"UPDATE databases SET container_id = ? WHERE id = ?", containerID, databaseID)
	if err != nil {
		return fmt.Errorf("failed to attach container to database %d: %w", databaseID, err)
	}
	return requireRowAffected(res)
}

// NextAvailablePort returns one past the highest port handed out so
// far, starting at BasePostgresPort+1.
func (s *Store) NextAvailablePort() (int, error) {
	var port int
	err := s.db.QueryRow(
		"SELECT COALESCE(MAX(port), ?) + 1 FROM databases", BasePostgresPort).Scan(&port)
	if err != nil {
		return 0, fmt.Errorf("failed to find next available port: %w", err)
	}
	return port, nil
}

func (s *Store) GetDatabaseByID(id int64) (*Database, error) {
	return s.scanDatabase(s.db.QueryRow(
		"SELECT id, name, port, username, password, container_id, created_at FROM databases WHERE id = ?", id))
}

func (s *Store) GetDatabaseByName(name string) (*Database, error) {
	return s.scanDatabase(s.db.QueryRow(
		"SELECT id, name, port, username, password, container_id, created_at FROM databases WHERE name = ?", name))
}

func (s *Store) ListDatabases() ([]*Database, error) {
	return s.queryDatabases(
		"SELECT id, name, port, username, password, container_id, created_at FROM databases ORDER BY name")
}

// ListDatabasesForUser returns the databases the user has been granted
// access to. Admin callers should use ListDatabases instead.
func (s *Store) ListDatabasesForUser(userID int64) ([]*Database, error) {
	return s.queryDatabases(`
		SELECT d.id, d.name, d.port, d.username, d.password, d.container_id, d.created_at
		FROM databases d
		JOIN database_permissions p ON p.database_id = d.id
		WHERE p.user_id = ?
		ORDER BY d.name`, userID)
}

func (s *Store) DeleteDatabase(databaseID int64) error {
	res, err := s.db.Exec("DELETE FROM databases WHERE id = ?", databaseID)
	if err != nil {
		return fmt.Errorf("failed to delete database %d: %w", databaseID, err)
	}
	return requireRowAffected(res)
}

func (s *Store) GrantDatabaseAccess(databaseID, userID int64) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO database_permissions (database_id, user_id) VALUES (?, ?)",
		databaseID, userID)
	if err != nil {
		return fmt.Errorf("failed to grant access to database %d: %w", databaseID, err)
	}
	return nil
}

func (s *Store) RevokeDatabaseAccess(databaseID, userID int64) error {
	_, err := s.db.Exec(
		"DELETE FROM database_permissions WHERE database_id = ? AND user_id = ?",
		databaseID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke access to database %d: %w", databaseID, err)
	}
	return nil
}

func (s *Store) HasDatabaseAccess(databaseID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM database_permissions WHERE database_id = ? AND user_id = ?",
		databaseID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check access to database %d: %w", databaseID, err)
	}
	return n > 0, nil
}

func (s *Store) queryDatabases(query string, args ...any) ([]*Database, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var dbs []*Database
	for rows.Next() {
		var d Database
		var containerID sql.NullString
		err := rows.Scan(&d.ID, &d.Name, &d.Port, &d.Username, &d.Password,
			&containerID, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan database: %w", err)
		}
		if containerID.Valid {
			d.ContainerID = &containerID.String
		}
		dbs = append(dbs, &d)
	}
	return dbs, rows.Err()
}

func (s *Store) scanDatabase(row *sql.Row) (*Database, error) {
	var d Database
	var containerID sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Port, &d.Username, &d.Password,
		&containerID, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan database: %w", err)
	}
	if containerID.Valid {
		d.ContainerID = &containerID.String
	}
	return &d, nil
}
