package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Site lifecycle statuses. A row is created as provisioning before the
// container exists; reconciliation marks rows whose container vanished
// as missing.
const (
	SiteStatusProvisioning = "provisioning"
	SiteStatusRunning      = "running"
	SiteStatusStopped      = "stopped"
	SiteStatusMissing      = "missing"
)

type Site struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Domain      string    `json:"domain"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	ContainerID *string   `json:"container_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateSite inserts a site row without a container id; the container
// is attached once provisioning succeeds.
func (s *Store) CreateSite(userID int64, domain, siteType string) (*Site, error) {
	res, err := s.db.Exec(
		"INSERT INTO sites (user_id, domain, site_type, status) VALUES (?, ?, ?, ?)",
		userID, domain, siteType, SiteStatusProvisioning,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create site %s: %w", domain, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create site %s: %w", domain, err)
	}
	return s.GetSiteByID(id)
}

// AttachSiteContainer records the provisioned container and marks the
// site running.
func (s *Store) AttachSiteContainer(siteID int64, containerID string) error {
	res, err := s.db.Exec(
		"UPDATE sites SET container_id = ?, status = ? WHERE id = ?",
		containerID, SiteStatusRunning, siteID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach container to site %d: %w", siteID, err)
	}
	return requireRowAffected(res)
}

func (s *Store) UpdateSiteStatus(siteID int64, status string) error {
	res, err := s.db.Exec("UPDATE sites SET status = ? WHERE id = ?", status, siteID)
	if err != nil {
		return fmt.Errorf("failed to update site %d status: %w", siteID, err)
	}
	return requireRowAffected(res)
}

func (s *Store) GetSiteByID(id int64) (*Site, error) {
	return s.scanSite(s.db.QueryRow(
		"SELECT id, user_id, domain, site_type, status, container_id, created_at FROM sites WHERE id = ?", id))
}

func (s *Store) GetSiteByDomain(domain string) (*Site, error) {
	return s.scanSite(s.db.QueryRow(
		"SELECT id, user_id, domain, site_type, status, container_id, created_at FROM sites WHERE domain = ?", domain))
}

func (s *Store) GetSiteByContainerID(containerID string) (*Site, error) {
	return s.scanSite(s.db.QueryRow(
		"SELECT id, user_id, domain, site_type, status, container_id, created_at FROM sites WHERE container_id = ?", containerID))
}

func (s *Store) ListSites() ([]*Site, error) {
	return s.querySites(
		"SELECT id, user_id, domain, site_type, status, container_id, created_at FROM sites ORDER BY domain")
}

func (s *Store) ListSitesByUser(userID int64) ([]*Site, error) {
	return s.querySites(
		"SELECT id, user_id, domain, site_type, status, container_id, created_at FROM sites WHERE user_id = ? ORDER BY domain",
		userID)
}

func (s *Store) DeleteSite(siteID int64) error {
	res, err := s.db.Exec("DELETE FROM sites WHERE id = ?", siteID)
	if err != nil {
		return fmt.Errorf("failed to delete site %d: %w", siteID, err)
	}
	return requireRowAffected(res)
}

func (s *Store) querySites(query string, args ...any) ([]*Site, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		var site Site
		var containerID sql.NullString
		err := rows.Scan(&site.ID, &site.UserID, &site.Domain, &site.Type,
			&site.Status, &containerID, &site.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		if containerID.Valid {
			site.ContainerID = &containerID.String
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

func (s *Store) scanSite(row *sql.Row) (*Site, error) {
	var site Site
	var containerID sql.NullString
	err := row.Scan(&site.ID, &site.UserID, &site.Domain, &site.Type,
		&site.Status, &containerID, &site.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}
	if containerID.Valid {
		site.ContainerID = &containerID.String
	}
	return &site, nil
}
